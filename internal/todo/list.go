package todo

// List is the locally held copy of the server's todos, in display order.
type List []Todo

// Index returns the position of id, or -1.
func (l List) Index(id int) int {
	for i, t := range l {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Upsert appends t, or replaces the entry with the same id.
func (l List) Upsert(t Todo) List {
	if i := l.Index(t.ID); i >= 0 {
		return l.Replace(t.ID, t)
	}
	out := make(List, len(l), len(l)+1)
	copy(out, l)
	return append(out, t)
}

// Replace swaps the entry for id with t. Unknown ids leave the list as is.
func (l List) Replace(id int, t Todo) List {
	out := make(List, len(l))
	copy(out, l)
	if i := out.Index(id); i >= 0 {
		out[i] = t
	}
	return out
}

// Remove drops the entry for id.
func (l List) Remove(id int) List {
	out := make(List, 0, len(l))
	for _, t := range l {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// Pending counts todos that are not completed.
func (l List) Pending() int {
	n := 0
	for _, t := range l {
		if !t.IsCompleted {
			n++
		}
	}
	return n
}
