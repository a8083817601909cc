package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pbaille/ods/internal/session"
)

const (
	sessionCookie = "ods_session"
	maxVisitors   = 1024
)

// visitors keeps one display per browser, keyed by a cookie
type visitors struct {
	newSession func() *session.Session
	max        int

	mu       sync.Mutex
	sessions map[string]*visitor
	clock    uint64
}

type visitor struct {
	session  *session.Session
	lastSeen uint64
}

func newVisitors(newSession func() *session.Session, max int) *visitors {
	return &visitors{
		newSession: newSession,
		max:        max,
		sessions:   make(map[string]*visitor),
	}
}

// lookup returns the session for id, if one exists
func (v *visitors) lookup(id string) (*session.Session, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	vis, ok := v.sessions[id]
	if !ok {
		return nil, false
	}
	vis.lastSeen = v.tick()
	return vis.session, true
}

// get returns the session for id, creating it when missing. The least
// recently seen visitor is dropped once max is reached.
func (v *visitors) get(id string) *session.Session {
	v.mu.Lock()
	defer v.mu.Unlock()

	if vis, ok := v.sessions[id]; ok {
		vis.lastSeen = v.tick()
		return vis.session
	}

	if len(v.sessions) >= v.max {
		var oldest string
		var oldestSeen uint64
		for k, vis := range v.sessions {
			if oldest == "" || vis.lastSeen < oldestSeen {
				oldest, oldestSeen = k, vis.lastSeen
			}
		}
		delete(v.sessions, oldest)
	}

	s := v.newSession()
	v.sessions[id] = &visitor{session: s, lastSeen: v.tick()}
	return s
}

// tick orders accesses; callers hold mu
func (v *visitors) tick() uint64 {
	v.clock++
	return v.clock
}

func (v *visitors) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.sessions)
}

// visitorID returns the caller's session id, issuing a new cookie when the
// request carries none or a malformed one
func visitorID(c *gin.Context) string {
	if id, err := c.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}

	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
	return id
}
