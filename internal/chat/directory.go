package chat

// Directory is the in-memory registry of known sessions, ordered most recent
// first, with a nullable pointer to the session in focus. It is not safe for
// concurrent use; the Core serializes access.
type Directory struct {
	sessions []*Session
	current  SessionID
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{}
}

// Prepend inserts a session at the front (most recent).
func (d *Directory) Prepend(s *Session) {
	d.sessions = append([]*Session{s}, d.sessions...)
}

// Get returns the session with the given id.
func (d *Directory) Get(id SessionID) (*Session, bool) {
	for _, s := range d.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Replace swaps the stored session with the same id for the given one.
// Used to commit reconciled state or restore a rollback snapshot.
func (d *Directory) Replace(s *Session) {
	for i, existing := range d.sessions {
		if existing.ID == s.ID {
			d.sessions[i] = s
			return
		}
	}
}

// Remove deletes the session with the given id. If it was current, focus
// moves to the most recent remaining session, or nothing.
func (d *Directory) Remove(id SessionID) bool {
	for i, s := range d.sessions {
		if s.ID == id {
			d.sessions = append(d.sessions[:i], d.sessions[i+1:]...)
			if d.current == id {
				d.current = SessionID{}
				if len(d.sessions) > 0 {
					d.current = d.sessions[0].ID
				}
			}
			return true
		}
	}
	return false
}

// Sessions returns the sessions in order, most recent first.
func (d *Directory) Sessions() []*Session {
	out := make([]*Session, len(d.sessions))
	copy(out, d.sessions)
	return out
}

// Len returns the number of sessions.
func (d *Directory) Len() int {
	return len(d.sessions)
}

// Current returns the session in focus, if any.
func (d *Directory) Current() (*Session, bool) {
	if d.current.IsZero() {
		return nil, false
	}
	return d.Get(d.current)
}

// SetCurrent moves focus to the given session id.
func (d *Directory) SetCurrent(id SessionID) {
	d.current = id
}

// ClearCurrent drops the focus pointer.
func (d *Directory) ClearCurrent() {
	d.current = SessionID{}
}

// KeepLocal drops every remote session, retaining local ones. Focus is kept
// only if it already pointed at a local session.
func (d *Directory) KeepLocal() {
	kept := d.sessions[:0]
	for _, s := range d.sessions {
		if s.ID.IsLocal() {
			kept = append(kept, s)
		}
	}
	d.sessions = kept
	if !d.current.IsZero() && !d.current.IsLocal() {
		d.current = SessionID{}
	}
}
