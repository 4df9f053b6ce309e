package tui

// listState holds cursor and scroll position for a scrollable list.
type listState struct {
	cursor int
	offset int
	height int
	length int
}

func (l *listState) setLength(n int) {
	l.length = n
	l.clamp()
}

func (l *listState) moveUp() {
	l.cursor--
	l.clamp()
}

func (l *listState) moveDown() {
	l.cursor++
	l.clamp()
}

func (l *listState) pageUp() {
	l.cursor -= l.pageSize()
	l.clamp()
}

func (l *listState) pageDown() {
	l.cursor += l.pageSize()
	l.clamp()
}

func (l *listState) goHome() {
	l.cursor = 0
	l.clamp()
}

func (l *listState) goEnd() {
	l.cursor = l.length - 1
	l.clamp()
}

func (l *listState) reset() {
	l.cursor = 0
	l.offset = 0
}

func (l *listState) pageSize() int {
	if l.height > 1 {
		return l.height - 1
	}
	return 1
}

// clamp keeps the cursor inside the list and scrolls the window to follow it.
func (l *listState) clamp() {
	if l.length == 0 {
		l.cursor = 0
		l.offset = 0
		return
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	if l.cursor >= l.length {
		l.cursor = l.length - 1
	}

	visible := l.height
	if visible < 1 {
		visible = 1
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+visible {
		l.offset = l.cursor - visible + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

// window returns the [start, end) slice bounds of the visible rows.
func (l *listState) window() (int, int) {
	visible := l.height
	if visible < 1 {
		visible = 1
	}
	end := l.offset + visible
	if end > l.length {
		end = l.length
	}
	return l.offset, end
}
