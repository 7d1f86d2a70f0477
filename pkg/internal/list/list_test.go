package list

import "testing"

func values(l *List[string]) []string {
	var out []string
	l.Map(func(lk *Link[string]) { out = append(out, lk.GetValue()) })
	return out
}

func TestPushHeadTail(t *testing.T) {
	l := New[string]()
	l.PushTail("b")
	l.PushTail("c")
	l.PushHead("a")

	got := values(l)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPopSelfMiddle(t *testing.T) {
	l := New[string]()
	l.PushTail("a")
	mid := l.PushTail("b")
	l.PushTail("c")

	mid.PopSelf()

	got := values(l)
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("got %v, want [a c]", got)
	}
	if mid.GetList() != nil {
		t.Fatalf("popped link should report nil list")
	}
}

func TestPopSelfHeadAndTail(t *testing.T) {
	l := New[int]()
	h := l.PushTail(1)
	l.PushTail(2)
	tl := l.PushTail(3)

	h.PopSelf()
	if l.PeekHead().GetValue() != 2 {
		t.Fatalf("expected new head 2, got %v", l.PeekHead().GetValue())
	}

	tl.PopSelf()
	if l.PeekTail().GetValue() != 2 {
		t.Fatalf("expected new tail 2, got %v", l.PeekTail().GetValue())
	}
}

func TestEmptyListPeeks(t *testing.T) {
	l := New[int]()
	if l.PeekHead() != nil || l.PeekTail() != nil {
		t.Fatalf("empty list should have nil head and tail")
	}
}

func TestPopAllEmpties(t *testing.T) {
	l := New[int]()
	a := l.PushTail(1)
	b := l.PushTail(2)
	a.PopSelf()
	b.PopSelf()
	if l.PeekHead() != nil || l.PeekTail() != nil {
		t.Fatalf("list should be empty after popping every link")
	}
}
