// Package list implements a small intrusive doubly-linked list, used by the
// buffer pool to track free, unpinned, and pinned frames without allocating
// on every move between lists.
package list

// List is a doubly-linked list of values of type T.
type List[T any] struct {
	head *Link[T]
	tail *Link[T]
}

// New constructs an empty list.
func New[T any]() *List[T] {
	return &List[T]{}
}

// PeekHead returns the head link, or nil if the list is empty.
func (l *List[T]) PeekHead() *Link[T] {
	return l.head
}

// PeekTail returns the tail link, or nil if the list is empty.
func (l *List[T]) PeekTail() *Link[T] {
	return l.tail
}

// PushHead adds value to the front of the list and returns its link.
func (l *List[T]) PushHead(value T) *Link[T] {
	link := &Link[T]{list: l, next: l.head, value: value}
	if l.head != nil {
		l.head.prev = link
	}
	l.head = link
	if l.tail == nil {
		l.tail = link
	}
	return link
}

// PushTail adds value to the back of the list and returns its link.
func (l *List[T]) PushTail(value T) *Link[T] {
	link := &Link[T]{list: l, prev: l.tail, value: value}
	if l.tail != nil {
		l.tail.next = link
	}
	l.tail = link
	if l.head == nil {
		l.head = link
	}
	return link
}

// Map applies f to every link in the list, in head-to-tail order.
// f must not remove the link it is currently passed.
func (l *List[T]) Map(f func(*Link[T])) {
	for cur := l.head; cur != nil; cur = cur.next {
		f(cur)
	}
}

// Link is one node of a List.
type Link[T any] struct {
	list  *List[T]
	prev  *Link[T]
	next  *Link[T]
	value T
}

// GetList returns the list this link currently belongs to, or nil if it has been popped.
func (lk *Link[T]) GetList() *List[T] {
	return lk.list
}

// GetValue returns the link's value.
func (lk *Link[T]) GetValue() T {
	return lk.value
}

// GetNext returns the next link, or nil at the tail.
func (lk *Link[T]) GetNext() *Link[T] {
	return lk.next
}

// PopSelf removes this link from whatever list it belongs to.
func (lk *Link[T]) PopSelf() {
	if lk.prev == nil {
		lk.list.head = lk.next
	} else {
		lk.prev.next = lk.next
	}
	if lk.next == nil {
		lk.list.tail = lk.prev
	} else {
		lk.next.prev = lk.prev
	}
	lk.list = nil
	lk.prev = nil
	lk.next = nil
}
