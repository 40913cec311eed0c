package print

import (
	"cmp"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
)

// SupportCause explains why a spot needs support.
type SupportCause int

// Support causes, ordered as they are grouped in alerts.
const (
	CauseLongBridge SupportCause = iota
	CauseFloatingBridgeAnchor
	CauseFloatingExtrusion
	CauseSeparationFromBed
	CauseUnstableFloatingPart
	CauseWeakObjectPart
)

// Issue is one support problem of an object.
type Issue struct {
	Cause    SupportCause
	Critical bool
}

// Message returns the alert text of the issue.
func (i Issue) Message() string {
	switch i.Cause {
	case CauseLongBridge:
		return "Long bridging extrusions"
	case CauseFloatingBridgeAnchor:
		return "Floating bridge anchors"
	case CauseFloatingExtrusion:
		if i.Critical {
			return "Collapsing overhang"
		}
		return "Loose extrusions"
	case CauseSeparationFromBed:
		return "Low bed adhesion"
	case CauseUnstableFloatingPart:
		return "Floating object part"
	case CauseWeakObjectPart:
		return "Thin fragile part"
	default:
		return ""
	}
}

// SupportPoint is a spot that would need support, in object coordinates (mm).
type SupportPoint struct {
	X, Y, Z float64
	Cause   SupportCause
}

// PartialObject is a connected part of the object.
type PartialObject struct {
	Volume         float64
	ConnectedToBed bool
}

// SupportSpots is the result of the support spot search.
type SupportSpots struct {
	Points []SupportPoint
	Parts  []PartialObject
}

const (
	// longBridge is the unsupported span in mm above which a bridge is long.
	longBridge = 10.0
	// slenderness is the height to footprint ratio above which bed adhesion is low.
	slenderness = 12.0
	// neckRatio is the area ratio that makes a layer a fragile neck.
	neckRatio = 10.0
	// clusterRadius groups floating spots when gathering issues, in mm.
	clusterRadius = 3.0
)

// searchSupportSpots classifies the unsupported parts of the sliced layers.
func (o *PrintObject) searchSupportSpots(rc execution.RunContext) (SupportSpots, error) {
	var out SupportSpots
	if len(o.layers) == 0 {
		return out, nil
	}

	parts := newIslandParts(o.layers)
	areas := make([]float64, len(o.layers))
	for i, l := range o.layers {
		for _, isl := range l.Islands() {
			areas[i] += isl.Area()
		}
	}

	for i := 1; i < len(o.layers); i++ {
		if i%16 == 0 {
			if err := rc.Err(); err != nil {
				return out, err
			}
		}
		l, below := o.layers[i], o.layers[i-1].Islands()
		allowed := o.allowedOverhang(l.Height)
		for _, isl := range l.Islands() {
			out.Points = append(out.Points, unsupportedSpots(isl, below, allowed, l.PrintZ)...)
		}
	}

	// low bed adhesion of slender objects without a brim
	if !o.HasBrim() && areas[0] > 0 {
		last := o.layers[len(o.layers)-1]
		if last.PrintZ/math.Sqrt(areas[0]) > slenderness {
			c := geometry.ConvexHull(flatten(o.layers[0].Islands())).Centroid()
			out.Points = append(out.Points, SupportPoint{X: mm(c.X), Y: mm(c.Y), Z: o.layers[0].PrintZ, Cause: CauseSeparationFromBed})
		}
	}

	// a thin layer between much larger ones
	for i := 1; i+1 < len(o.layers); i++ {
		a := areas[i]
		if a <= 0 {
			continue
		}
		if slices.Max(areas[:i])/a > neckRatio && slices.Max(areas[i+1:])/a > neckRatio {
			c := geometry.ConvexHull(flatten(o.layers[i].Islands())).Centroid()
			out.Points = append(out.Points, SupportPoint{X: mm(c.X), Y: mm(c.Y), Z: o.layers[i].PrintZ, Cause: CauseWeakObjectPart})
			break
		}
	}

	out.Parts = parts.objects()
	return out, nil
}

// allowedOverhang returns how far in mm an extrusion may stick out over the
// layer below at the support threshold angle.
func (o *PrintObject) allowedOverhang(layerHeight float64) float64 {
	t := o.config.SupportMaterialThreshold
	if t <= 0 || t >= 90 {
		return layerHeight
	}
	return layerHeight / math.Tan(t*math.Pi/180)
}

// unsupportedSpots reports the island vertices hanging in the air. Edges with
// both ends unsupported and longer than longBridge are reported as bridges.
func unsupportedSpots(isl geometry.Polygon, below []geometry.Polygon, allowed, z float64) []SupportPoint {
	var out []SupportPoint
	free := make([]bool, len(isl))
	for i, pt := range isl {
		free[i] = !supported(pt, below, allowed)
		if free[i] {
			out = append(out, SupportPoint{X: mm(pt.X), Y: mm(pt.Y), Z: z, Cause: CauseFloatingExtrusion})
		}
	}
	for i, ln := range isl.Lines() {
		j := (i + 1) % len(isl)
		if free[i] && free[j] && ln.Length()/geometry.Scale > longBridge {
			m := ln.A.Add(ln.B).Scale(0.5)
			if !supported(m, below, allowed) {
				out = append(out, SupportPoint{X: mm(m.X), Y: mm(m.Y), Z: z, Cause: CauseLongBridge})
			}
		}
	}
	return out
}

// supported reports whether pt lies on or within allowed mm of an island.
func supported(pt geometry.Point, islands []geometry.Polygon, allowed float64) bool {
	limit := allowed * geometry.Scale
	for _, isl := range islands {
		if isl.Contains(pt) || distanceToPolygon(pt, isl) <= limit {
			return true
		}
	}
	return false
}

func distanceToPolygon(pt geometry.Point, p geometry.Polygon) float64 {
	best := math.Inf(1)
	for _, ln := range p.Lines() {
		best = min(best, distanceToSegment(pt, ln))
	}
	return best
}

func distanceToSegment(pt geometry.Point, ln geometry.Line) float64 {
	d := ln.Vector()
	l2 := d.Dot(d)
	if l2 == 0 {
		return pt.DistanceTo(ln.A)
	}
	t := pt.Sub(ln.A).Dot(d) / l2
	t = max(0, min(1, t))
	proj := geometry.Point{
		X: ln.A.X + int64(math.Round(t*float64(d.X))),
		Y: ln.A.Y + int64(math.Round(t*float64(d.Y))),
	}
	return pt.DistanceTo(proj)
}

func mm(v int64) float64 { return geometry.Unscaled(v) }

func flatten(polys []geometry.Polygon) []geometry.Point {
	var out []geometry.Point
	for _, p := range polys {
		out = append(out, p...)
	}
	return out
}

// islandParts joins islands of consecutive layers that overlap into parts.
type islandParts struct {
	parent []int
	volume []float64
	onBed  []bool
}

func newIslandParts(layers []*Layer) *islandParts {
	p := &islandParts{}
	var prev []int
	var prevIslands []geometry.Polygon
	for li, l := range layers {
		islands := l.Islands()
		ids := make([]int, len(islands))
		for i, isl := range islands {
			ids[i] = p.add(isl.Area()*l.Height, li == 0)
			for j, under := range prevIslands {
				if touches(isl, under) {
					p.union(ids[i], prev[j])
				}
			}
		}
		prev, prevIslands = ids, islands
	}
	return p
}

func (p *islandParts) add(volume float64, onBed bool) int {
	p.parent = append(p.parent, len(p.parent))
	p.volume = append(p.volume, volume)
	p.onBed = append(p.onBed, onBed)
	return len(p.parent) - 1
}

func (p *islandParts) find(i int) int {
	for p.parent[i] != i {
		p.parent[i] = p.parent[p.parent[i]]
		i = p.parent[i]
	}
	return i
}

func (p *islandParts) union(a, b int) {
	ra, rb := p.find(a), p.find(b)
	if ra == rb {
		return
	}
	p.parent[rb] = ra
	p.volume[ra] += p.volume[rb]
	p.onBed[ra] = p.onBed[ra] || p.onBed[rb]
}

func (p *islandParts) objects() []PartialObject {
	var out []PartialObject
	for i := range p.parent {
		if p.find(i) == i {
			out = append(out, PartialObject{Volume: p.volume[i], ConnectedToBed: p.onBed[i]})
		}
	}
	return out
}

func touches(a, b geometry.Polygon) bool {
	if !a.BoundingBox().Overlaps(b.BoundingBox()) {
		return false
	}
	for _, pt := range a {
		if b.Contains(pt) {
			return true
		}
	}
	for _, pt := range b {
		if a.Contains(pt) {
			return true
		}
	}
	return overlapsEdges(a, b)
}

func overlapsEdges(a, b geometry.Polygon) bool {
	for _, la := range a.Lines() {
		for _, lb := range b.Lines() {
			if _, ok := la.Intersection(lb); ok {
				return true
			}
		}
	}
	return false
}

// GatherIssues condenses support spots into at most one issue per cause.
func GatherIssues(spots SupportSpots) []Issue {
	var out []Issue

	parts := slices.SortedFunc(slices.Values(spots.Parts), func(a, b PartialObject) int {
		return cmp.Compare(b.Volume, a.Volume)
	})
	var largest float64
	if len(parts) > 0 {
		largest = parts[0].Volume
	}
	for _, p := range parts {
		if p.Volume > largest/200 && !p.ConnectedToBed {
			out = append(out, Issue{Cause: CauseUnstableFloatingPart, Critical: true})
			break
		}
	}

	var floating []SupportPoint
	for _, sp := range spots.Points {
		if sp.Cause == CauseFloatingBridgeAnchor || sp.Cause == CauseFloatingExtrusion {
			floating = append(floating, sp)
		}
	}
	for _, sp := range floating {
		score, bridge := 0, false
		for _, other := range floating {
			if math.Hypot(math.Hypot(other.X-sp.X, other.Y-sp.Y), other.Z-sp.Z) > clusterRadius {
				continue
			}
			if other.Cause == CauseFloatingBridgeAnchor {
				score += 3
				bridge = true
			} else {
				score++
			}
		}
		if score > 5 {
			if bridge {
				out = append(out, Issue{Cause: CauseFloatingBridgeAnchor, Critical: true})
			} else {
				out = append(out, Issue{Cause: CauseFloatingExtrusion, Critical: true})
			}
			break
		}
	}

	if hasCause(spots.Points, CauseSeparationFromBed) {
		out = append(out, Issue{Cause: CauseSeparationFromBed, Critical: true})
	}
	if hasCause(spots.Points, CauseWeakObjectPart) {
		out = append(out, Issue{Cause: CauseWeakObjectPart, Critical: true})
	}
	if float64(len(floating)) > largest/200 {
		out = append(out, Issue{Cause: CauseFloatingExtrusion, Critical: false})
	}
	if hasCause(spots.Points, CauseLongBridge) {
		out = append(out, Issue{Cause: CauseLongBridge, Critical: false})
	}
	return out
}

func hasCause(points []SupportPoint, c SupportCause) bool {
	return slices.ContainsFunc(points, func(sp SupportPoint) bool { return sp.Cause == c })
}

// ObjectIssues are the support issues found on one object.
type ObjectIssues struct {
	Object  string
	HasBrim bool
	Issues  []Issue
}

// GroupSupportIssues builds the stability alert for objects printed without
// support. It groups by issue when more objects than distinct issues are
// affected, by object otherwise. It returns "" when there is nothing to report.
func GroupSupportIssues(objects []ObjectIssues) string {
	var affected []ObjectIssues
	for _, o := range objects {
		if len(o.Issues) > 0 {
			affected = append(affected, o)
		}
	}
	if len(affected) == 0 {
		return ""
	}

	byIssue := make(map[Issue][]string)
	recommendBrim := false
	for _, o := range affected {
		for _, is := range o.Issues {
			byIssue[is] = append(byIssue[is], o.Object)
			if is.Cause == CauseSeparationFromBed && !o.HasBrim {
				recommendBrim = true
			}
		}
	}

	type element struct {
		title string
		items []string
	}
	var elements []element
	if len(affected) > len(byIssue) {
		issues := slices.SortedFunc(maps.Keys(byIssue), func(a, b Issue) int {
			return cmp.Or(cmp.Compare(a.Cause, b.Cause), compareBool(a.Critical, b.Critical))
		})
		for _, is := range issues {
			elements = append(elements, element{title: is.Message(), items: byIssue[is]})
		}
	} else {
		for _, o := range affected {
			e := element{title: o.Object}
			for _, is := range o.Issues {
				e.items = append(e.items, is.Message())
			}
			elements = append(elements, e)
		}
	}

	var lines []string
	for _, e := range elements {
		lines = append(lines, "", e.title, strings.Join(e.items, ", "))
	}
	lines = append(lines, "", "Consider enabling supports.")
	if recommendBrim {
		lines = append(lines, "Also consider enabling brim.")
	}
	return "Detected print stability issues:\n" + strings.Join(lines, "\n")
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
