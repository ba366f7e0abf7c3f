package monitor

// Point is one time-stamped reading in the sliding window. Offset is the
// point's age in polling intervals: the newest point sits at 0, its
// predecessor at -1, and so on.
type Point struct {
	Offset int
	Watts  float64
}

// Window is a bounded, time-ordered buffer of the most recent readings,
// re-aged on every iteration. Points are kept sorted by offset ascending,
// oldest first. The window is owned by a single monitoring loop and is
// never shared.
type Window struct {
	capacity int
	points   []Point
}

func NewWindow(capacity int) *Window {
	return &Window{
		capacity: capacity,
		points:   make([]Point, 0, capacity),
	}
}

// Advance ages every point by one interval and, when the window is full,
// evicts the oldest point. Eviction happens before the next Append so the
// window never exceeds its capacity, even transiently.
func (w *Window) Advance() {
	for i := range w.points {
		w.points[i].Offset--
	}

	if len(w.points) == w.capacity {
		copy(w.points, w.points[1:])
		w.points = w.points[:len(w.points)-1]
	}
}

// Append adds a fresh reading at offset 0
func (w *Window) Append(watts float64) {
	w.points = append(w.points, Point{Offset: 0, Watts: watts})
}

// Points returns a copy of the current window contents, oldest first
func (w *Window) Points() []Point {
	points := make([]Point, len(w.points))
	copy(points, w.points)

	return points
}

// Len returns the number of points currently held
func (w *Window) Len() int {
	return len(w.points)
}

// Capacity returns the window's fixed maximum length
func (w *Window) Capacity() int {
	return w.capacity
}
