// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventloop

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/joeycumines/go-immediate"
)

const readyStateChangeEventType = "readystatechange"

// Document is a minimal document model, bound to a [Loop], implementing
// [immediate.Document]. It models the legacy script loading behavior where
// a script element inserted into the document fires readystatechange, as
// a task.
type Document struct {
	loop               *Loop
	html               *Element
	legacyScriptEvents bool
}

var _ immediate.Document = (*Document)(nil)

// NewDocument creates a [Document], with an empty "html" document element.
func NewDocument(loop *Loop, opts ...DocumentOption) (*Document, error) {
	cfg, err := resolveDocumentOptions(opts)
	if err != nil {
		return nil, err
	}
	d := &Document{
		loop:               loop,
		legacyScriptEvents: cfg.legacyScriptEvents,
	}
	d.html = d.newElement("html")
	d.html.connected = true
	return d, nil
}

// DocumentElement returns the root "html" element.
func (d *Document) DocumentElement() immediate.Element {
	return d.html
}

// Root returns the root "html" element, as its concrete type.
func (d *Document) Root() *Element {
	return d.html
}

// CreateElement creates a detached element. Script elements are returned
// as [*ScriptElement], unless disabled by [WithLegacyScriptEvents].
func (d *Document) CreateElement(tagName string) immediate.Element {
	tagName = strings.ToLower(tagName)
	el := d.newElement(tagName)
	if tagName == "script" && d.legacyScriptEvents {
		script := &ScriptElement{Element: el}
		el.self = script
		return script
	}
	return el
}

func (d *Document) newElement(tagName string) *Element {
	el := &Element{
		EventTarget: NewEventTarget(),
		document:    d,
		tagName:     tagName,
	}
	el.self = el
	return el
}

// Element is a node in a [Document], implementing [immediate.Element].
type Element struct {
	*EventTarget
	document *Document
	parent   *Element
	// self is the outermost value wrapping this element, e.g. a ScriptElement
	self      immediate.Element
	tagName   string
	children  []immediate.Element
	mu        sync.Mutex
	connected bool
}

var _ immediate.Element = (*Element)(nil)

// TagName returns the lower case tag name.
func (x *Element) TagName() string { return x.tagName }

// Children returns a copy of the child list.
func (x *Element) Children() []immediate.Element {
	x.mu.Lock()
	defer x.mu.Unlock()
	return slices.Clone(x.children)
}

// Parent returns the parent element, or nil if detached.
func (x *Element) Parent() *Element {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.parent
}

// AppendChild appends child, first removing it from any previous parent.
// Only elements created by the same [Document] may be appended. Inserting
// a script element into the document schedules its readystatechange. If the
// loop rejects that task, the child stays attached and the error is
// returned.
func (x *Element) AppendChild(child immediate.Element) error {
	node := asElement(child)
	if node == nil || node.document != x.document || node == x || x.isDescendantOf(node) {
		return ErrHierarchyRequest
	}

	if parent := node.Parent(); parent != nil {
		if err := parent.RemoveChild(child); err != nil {
			return err
		}
	}

	x.mu.Lock()
	x.children = append(x.children, node.self)
	connected := x.connected
	x.mu.Unlock()

	node.mu.Lock()
	node.parent = x
	node.mu.Unlock()

	if connected {
		return node.connect()
	}
	return nil
}

// RemoveChild removes child, failing with [ErrNotChild] if it is not a
// child of this element.
func (x *Element) RemoveChild(child immediate.Element) error {
	node := asElement(child)
	if node == nil {
		return ErrNotChild
	}

	x.mu.Lock()
	i := slices.Index(x.children, node.self)
	if i < 0 {
		x.mu.Unlock()
		return ErrNotChild
	}
	x.children = slices.Delete(x.children, i, i+1)
	x.mu.Unlock()

	node.mu.Lock()
	node.parent = nil
	node.mu.Unlock()

	node.disconnect()
	return nil
}

func (x *Element) isDescendantOf(other *Element) bool {
	for p := x.Parent(); p != nil; p = p.Parent() {
		if p == other {
			return true
		}
	}
	return false
}

// connect marks the subtree as connected to the document, firing
// insertion steps.
func (x *Element) connect() error {
	x.mu.Lock()
	x.connected = true
	children := slices.Clone(x.children)
	x.mu.Unlock()

	var errs []error
	if script, ok := x.self.(*ScriptElement); ok {
		if err := script.inserted(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, child := range children {
		if node := asElement(child); node != nil {
			if err := node.connect(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (x *Element) disconnect() {
	x.mu.Lock()
	x.connected = false
	children := slices.Clone(x.children)
	x.mu.Unlock()

	for _, child := range children {
		if node := asElement(child); node != nil {
			node.disconnect()
		}
	}
}

// asElement unwraps the elements of this package.
func asElement(v immediate.Element) *Element {
	switch v := v.(type) {
	case *Element:
		return v
	case *ScriptElement:
		if v != nil {
			return v.Element
		}
	}
	return nil
}

// ScriptElement is a "script" [Element] implementing
// [immediate.ReadyStateElement]. Once first inserted into the document, a
// task is queued to set its ready state to "loaded", dispatch a
// "readystatechange" event, and call the onreadystatechange handler.
type ScriptElement struct {
	*Element
	onreadystatechange func()
	readyState         string
	mu                 sync.Mutex
	started            bool
}

var _ immediate.ReadyStateElement = (*ScriptElement)(nil)

// SetOnReadyStateChange replaces the onreadystatechange handler. A nil
// handler clears it.
func (x *ScriptElement) SetOnReadyStateChange(fn func()) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.onreadystatechange = fn
}

// ReadyState returns "uninitialized", or "loaded" once fired.
func (x *ScriptElement) ReadyState() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.readyState == "" {
		return "uninitialized"
	}
	return x.readyState
}

func (x *ScriptElement) inserted() error {
	x.mu.Lock()
	if x.started {
		x.mu.Unlock()
		return nil
	}
	x.started = true
	x.mu.Unlock()

	return x.document.loop.Submit(x.fireReadyStateChange)
}

func (x *ScriptElement) fireReadyStateChange() {
	x.mu.Lock()
	x.readyState = "loaded"
	fn := x.onreadystatechange
	x.mu.Unlock()

	x.DispatchEvent(NewEvent(readyStateChangeEventType))
	if fn != nil {
		fn()
	}
}
