// Package event carries the resource a mutating handler acted on to the audit
// middleware that runs after it. Handlers record the resource explicitly; the
// middleware never guesses it from request or response bodies.
package event

import "github.com/gin-gonic/gin"

const contextKey = "auditEvent"

// Resource identifies what a request changed.
type Resource struct {
	Type string
	ID   string
	Name string
}

// Context is the per-request audit record shared between handler and middleware.
type Context struct {
	Resource
	// Action overrides the action derived from the HTTP method, e.g. "confirm".
	Action string
	// Recorded is set once a handler has filled in the resource.
	Recorded bool
}

// Begin installs an empty Context with a default resource type.
func Begin(c *gin.Context, resourceType string) *Context {
	ec := &Context{Resource: Resource{Type: resourceType}}
	c.Set(contextKey, ec)
	return ec
}

// From returns the Context installed by Begin.
func From(c *gin.Context) (*Context, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	ec, ok := v.(*Context)
	return ec, ok
}

// Record stores the resource a handler acted on.
func Record(c *gin.Context, r Resource) {
	RecordAction(c, "", r)
}

// RecordAction stores the resource together with an explicit action name.
func RecordAction(c *gin.Context, action string, r Resource) {
	ec, ok := From(c)
	if !ok {
		ec = Begin(c, r.Type)
	}
	if r.Type != "" {
		ec.Type = r.Type
	}
	ec.ID = r.ID
	ec.Name = r.Name
	if action != "" {
		ec.Action = action
	}
	ec.Recorded = true
}
