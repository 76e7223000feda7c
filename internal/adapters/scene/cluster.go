package scene

import (
	"fmt"
	"math"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
)

// clusterExtent is the tile extent the cluster radius is expressed in.
const clusterExtent = 512

// point is one input feature of a cluster index.
type point struct {
	pos   domain.LonLat
	props map[string]any
}

// node is a point or a cluster at one zoom level.
type node struct {
	x, y      float64
	visited   int // lowest zoom at which the node has been processed
	numPoints int
	clusterID int // 0 for single points
	parentID  int
	point     int // index into index.points for single points
}

// clusterIndex groups points per integer zoom in the manner of the supercluster
// algorithm: each level greedily merges the nodes of the level above that fall
// within radius pixels of each other.
type clusterIndex struct {
	maxZoom int
	radius  float64
	points  []point
	levels  [][]node // levels[z] holds the nodes shown at zoom z, 0..maxZoom+1
	byID    map[int]int // cluster id -> zoom it was created at
	nextID  int
}

func newClusterIndex(points []point, maxZoom int, radius float64) *clusterIndex {
	idx := &clusterIndex{
		maxZoom: maxZoom,
		radius:  radius,
		points:  points,
		levels:  make([][]node, maxZoom+2),
		byID:    make(map[int]int),
		nextID:  1,
	}

	top := make([]node, len(points))
	for i, p := range points {
		top[i] = node{
			x:         mercX(p.pos.Lon),
			y:         mercY(p.pos.Lat),
			visited:   math.MaxInt,
			numPoints: 1,
			point:     i,
		}
	}
	idx.levels[maxZoom+1] = top

	for z := maxZoom; z >= 0; z-- {
		idx.levels[z] = idx.cluster(z)
	}
	return idx
}

// cluster builds level z from level z+1.
func (idx *clusterIndex) cluster(z int) []node {
	src := idx.levels[z+1]
	r := idx.radius / (clusterExtent * math.Pow(2, float64(z)))
	grid := newGrid(src, r)

	var out []node
	for i := range src {
		p := &src[i]
		if p.visited <= z {
			continue
		}
		p.visited = z

		neighbors := grid.within(src, p.x, p.y, r)
		num := p.numPoints
		for _, j := range neighbors {
			if src[j].visited > z {
				num += src[j].numPoints
			}
		}
		if num == p.numPoints {
			out = append(out, node{x: p.x, y: p.y, visited: math.MaxInt, numPoints: p.numPoints, clusterID: p.clusterID, point: p.point})
			continue
		}

		id := idx.nextID
		idx.nextID++
		wx, wy := p.x*float64(p.numPoints), p.y*float64(p.numPoints)
		p.parentID = id
		for _, j := range neighbors {
			b := &src[j]
			if b.visited <= z {
				continue
			}
			b.visited = z
			b.parentID = id
			wx += b.x * float64(b.numPoints)
			wy += b.y * float64(b.numPoints)
		}

		idx.byID[id] = z
		out = append(out, node{
			x:         wx / float64(num),
			y:         wy / float64(num),
			visited:   math.MaxInt,
			numPoints: num,
			clusterID: id,
		})
	}
	return out
}

// levelFor returns the level index rendered at a fractional camera zoom.
func (idx *clusterIndex) levelFor(zoom float64) int {
	z := int(math.Floor(zoom))
	return max(0, min(z, idx.maxZoom+1))
}

// features returns the nodes rendered at zoom as position and properties.
func (idx *clusterIndex) features(zoom float64) []renderedPoint {
	level := idx.levels[idx.levelFor(zoom)]
	out := make([]renderedPoint, len(level))
	for i, n := range level {
		out[i] = idx.rendered(n)
	}
	return out
}

func (idx *clusterIndex) rendered(n node) renderedPoint {
	if n.clusterID == 0 {
		p := idx.points[n.point]
		return renderedPoint{pos: p.pos, props: p.props}
	}
	return renderedPoint{
		pos: domain.LonLat{Lon: mercLon(n.x), Lat: mercLat(n.y)},
		props: map[string]any{
			"cluster":                 true,
			"cluster_id":              n.clusterID,
			"point_count":             n.numPoints,
			"point_count_abbreviated": abbreviate(n.numPoints),
		},
	}
}

// children returns the nodes one level up that were merged into cluster id.
func (idx *clusterIndex) children(id int) ([]node, bool) {
	zoom, ok := idx.byID[id]
	if !ok {
		return nil, false
	}
	var out []node
	for _, n := range idx.levels[zoom+1] {
		if n.parentID == id {
			out = append(out, n)
		}
	}
	return out, true
}

// expansionZoom is the zoom at which cluster id breaks into more than one node.
func (idx *clusterIndex) expansionZoom(id int) (int, error) {
	zoom, ok := idx.byID[id]
	if !ok {
		return 0, fmt.Errorf("cluster %d: %w", id, errUnknownCluster)
	}

	for zoom <= idx.maxZoom {
		children, _ := idx.children(id)
		zoom++
		if len(children) != 1 || children[0].clusterID == 0 {
			break
		}
		id = children[0].clusterID
	}
	return zoom, nil
}

func abbreviate(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%dm", int(math.Round(float64(n)/1_000_000)))
	case n >= 10_000:
		return fmt.Sprintf("%dk", int(math.Round(float64(n)/1_000)))
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", math.Round(float64(n)/100)/10)
	}
	return fmt.Sprint(n)
}

// grid buckets node indexes by cell for radius searches.
type grid struct {
	cell  float64
	cells map[[2]int][]int
}

func newGrid(nodes []node, cell float64) grid {
	g := grid{cell: cell, cells: make(map[[2]int][]int)}
	for i, n := range nodes {
		k := g.key(n.x, n.y)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g grid) key(x, y float64) [2]int {
	return [2]int{int(math.Floor(x / g.cell)), int(math.Floor(y / g.cell))}
}

// within returns the indexes of nodes within r of (x, y), the node at (x, y)
// included.
func (g grid) within(nodes []node, x, y, r float64) []int {
	k := g.key(x, y)
	var out []int
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for _, i := range g.cells[[2]int{k[0] + dx, k[1] + dy}] {
				n := nodes[i]
				if (n.x-x)*(n.x-x)+(n.y-y)*(n.y-y) <= r*r {
					out = append(out, i)
				}
			}
		}
	}
	return out
}
