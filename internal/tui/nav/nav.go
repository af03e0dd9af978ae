// Package nav holds the pure cursor and scroll arithmetic for the browser
// view. Everything here is a function of (selection, offset, row count,
// viewport height); no I/O, no store access.
package nav

// Clamp bounds a selection index to [0, size-1].
func Clamp(sel, size int) int {
	if size <= 0 {
		return 0
	}
	if sel >= size {
		return size - 1
	}
	if sel < 0 {
		return 0
	}
	return sel
}

// Move shifts the selection by delta, clamped to the row range.
func Move(sel, delta, size int) int {
	return Clamp(sel+delta, size)
}

// PageDown moves the selection a full viewport down and returns the new
// selection and scroll offset, with the selection on the top visible row.
func PageDown(sel, height, size int) (int, int) {
	if height < 1 {
		height = 1
	}
	next := Clamp(sel+height, size)
	return next, Scroll(next, next, height, size)
}

// PageUp moves the selection a full viewport up, landing the selection on
// the bottom visible row.
func PageUp(sel, height, size int) (int, int) {
	if height < 1 {
		height = 1
	}
	next := Clamp(sel-height, size)
	offset := next - height + 1
	if offset < 0 {
		offset = 0
	}
	return next, Scroll(offset, next, height, size)
}

// Scroll restores the viewport invariant: the returned offset is the
// minimal shift of the given offset that keeps sel within
// [offset, offset+height-1] and the window inside the row range. Run after
// every structural change (fold, committed children, resize).
func Scroll(offset, sel, height, size int) int {
	if size <= 0 || height < 1 {
		return 0
	}
	sel = Clamp(sel, size)
	if offset < 0 {
		offset = 0
	}
	if sel < offset {
		offset = sel
	}
	if sel > offset+height-1 {
		offset = sel - height + 1
	}
	if maxOffset := size - height; offset > maxOffset {
		if maxOffset < 0 {
			maxOffset = 0
		}
		offset = maxOffset
	}
	return offset
}
