package eventloop

import (
	"errors"
	"testing"

	"github.com/joeycumines/go-immediate"
)

func TestDocument_ScriptReadyStateChange(t *testing.T) {
	loop := startLoop(t)
	doc, err := NewDocument(loop)
	if err != nil {
		t.Fatalf("NewDocument failed: %v", err)
	}

	script, ok := doc.CreateElement("SCRIPT").(*ScriptElement)
	if !ok {
		t.Fatal("expected a *ScriptElement")
	}
	if script.TagName() != "script" {
		t.Errorf("unexpected tag name: %s", script.TagName())
	}

	var rec recorder
	fired := make(chan struct{})
	script.AddEventListener(readyStateChangeEventType, func(*Event) { rec.add("event") })
	script.SetOnReadyStateChange(func() {
		rec.add("handler:" + script.ReadyState())
		close(fired)
	})

	result := make(chan string, 1)
	if err := loop.Submit(func() {
		if err := doc.DocumentElement().AppendChild(script); err != nil {
			t.Errorf("AppendChild failed: %v", err)
		}
		result <- script.ReadyState()
	}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if state := <-result; state != "uninitialized" {
		t.Errorf("readystatechange fired synchronously, state %s", state)
	}
	waitFor(t, fired)

	if got := rec.get(); len(got) != 2 || got[0] != "event" || got[1] != "handler:loaded" {
		t.Errorf("unexpected sequence: %v", got)
	}
	if children := doc.Root().Children(); len(children) != 1 || children[0] != immediate.Element(script) {
		t.Errorf("unexpected children: %v", children)
	}
	if script.Parent() != doc.Root() {
		t.Error("unexpected parent")
	}
}

func TestDocument_DetachedScriptDoesNotFire(t *testing.T) {
	loop := startLoop(t)
	doc, err := NewDocument(loop)
	if err != nil {
		t.Fatalf("NewDocument failed: %v", err)
	}

	div := doc.CreateElement("div")
	script := doc.CreateElement("script").(*ScriptElement)
	fired := make(chan struct{})
	script.SetOnReadyStateChange(func() { close(fired) })

	if err := div.AppendChild(script); err != nil {
		t.Fatalf("AppendChild failed: %v", err)
	}
	waitRunning(t, loop)
	if script.ReadyState() != "uninitialized" {
		t.Fatal("detached script fired")
	}

	// connecting the ancestor connects the script
	if err := doc.DocumentElement().AppendChild(div); err != nil {
		t.Fatalf("AppendChild failed: %v", err)
	}
	waitFor(t, fired)
}

func TestDocument_ScriptInsertionAfterClose(t *testing.T) {
	loop, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := loop.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	doc, err := NewDocument(loop)
	if err != nil {
		t.Fatalf("NewDocument failed: %v", err)
	}

	script := doc.CreateElement("script").(*ScriptElement)
	if err := doc.DocumentElement().AppendChild(script); !errors.Is(err, ErrLoopTerminated) {
		t.Fatalf("expected ErrLoopTerminated, got %v", err)
	}
	if script.Parent() != doc.DocumentElement() {
		t.Error("expected script to remain attached")
	}
	if script.ReadyState() != "uninitialized" {
		t.Errorf("unexpected ready state %s", script.ReadyState())
	}
}

func TestDocument_LegacyScriptEventsDisabled(t *testing.T) {
	doc, err := NewDocument(nil, WithLegacyScriptEvents(false))
	if err != nil {
		t.Fatalf("NewDocument failed: %v", err)
	}
	script := doc.CreateElement("script")
	if _, ok := script.(immediate.ReadyStateElement); ok {
		t.Error("expected script without onreadystatechange")
	}
	if _, ok := script.(*Element); !ok {
		t.Errorf("expected *Element, got %T", script)
	}
}

func TestElement_RemoveChild(t *testing.T) {
	doc, err := NewDocument(nil)
	if err != nil {
		t.Fatalf("NewDocument failed: %v", err)
	}
	parent := doc.CreateElement("div").(*Element)
	a := doc.CreateElement("span")
	b := doc.CreateElement("span")
	if err := parent.AppendChild(a); err != nil {
		t.Fatalf("AppendChild failed: %v", err)
	}

	if err := parent.RemoveChild(b); !errors.Is(err, ErrNotChild) {
		t.Errorf("expected ErrNotChild, got %v", err)
	}
	if err := parent.RemoveChild(nil); !errors.Is(err, ErrNotChild) {
		t.Errorf("expected ErrNotChild, got %v", err)
	}
	if err := parent.RemoveChild(a); err != nil {
		t.Errorf("RemoveChild failed: %v", err)
	}
	if err := parent.RemoveChild(a); !errors.Is(err, ErrNotChild) {
		t.Errorf("expected ErrNotChild on second removal, got %v", err)
	}
	if len(parent.Children()) != 0 {
		t.Error("expected no children")
	}
}

func TestElement_AppendChildMoves(t *testing.T) {
	doc, err := NewDocument(nil)
	if err != nil {
		t.Fatalf("NewDocument failed: %v", err)
	}
	first := doc.CreateElement("div").(*Element)
	second := doc.CreateElement("div").(*Element)
	child := doc.CreateElement("span")

	if err := first.AppendChild(child); err != nil {
		t.Fatalf("AppendChild failed: %v", err)
	}
	if err := second.AppendChild(child); err != nil {
		t.Fatalf("AppendChild failed: %v", err)
	}
	if len(first.Children()) != 0 || len(second.Children()) != 1 {
		t.Error("expected child to move")
	}
}

func TestElement_AppendChildHierarchy(t *testing.T) {
	doc, err := NewDocument(nil)
	if err != nil {
		t.Fatalf("NewDocument failed: %v", err)
	}
	other, err := NewDocument(nil)
	if err != nil {
		t.Fatalf("NewDocument failed: %v", err)
	}
	outer := doc.CreateElement("div").(*Element)
	inner := doc.CreateElement("div").(*Element)
	if err := outer.AppendChild(inner); err != nil {
		t.Fatalf("AppendChild failed: %v", err)
	}

	for name, child := range map[string]immediate.Element{
		"nil":      nil,
		"self":     outer,
		"ancestor": outer,
		"foreign":  other.CreateElement("div"),
	} {
		target := outer
		if name == "ancestor" {
			target = inner
		}
		if err := target.AppendChild(child); !errors.Is(err, ErrHierarchyRequest) {
			t.Errorf("%s: expected ErrHierarchyRequest, got %v", name, err)
		}
	}
}
