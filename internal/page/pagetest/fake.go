// Package pagetest provides a scriptable in-memory page.Page for tests.
package pagetest

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"

	"thirdcoast.systems/browserutility/internal/bridge"
)

// Element is one fake DOM node.
type Element struct {
	Text  string
	Attrs map[string]string
	// Children are descendants keyed by the child selector.
	Children map[string][]Element
}

// Fake answers queries from Elements, keyed by the exact selector string.
type Fake struct {
	PageURL        string
	PageTitle      string
	SelectionText  string
	Resources      []string
	PlayerResponse json.RawMessage
	// SilentBridge makes PostPlayerResponse never answer.
	SilentBridge bool
	// OnClick runs when an element under that selector key is clicked.
	OnClick map[string]func(*Fake)

	mu       sync.Mutex
	Elements map[string][]Element
	Clicks   []string
	Inserted map[string]string
	Queries  int
}

func (f *Fake) URL() string { return f.PageURL }

func (f *Fake) Title(context.Context) (string, error) { return f.PageTitle, nil }

func (f *Fake) Texts(_ context.Context, selector string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries++
	var out []string
	for _, el := range f.Elements[selector] {
		out = append(out, el.Text)
	}
	return out, nil
}

func (f *Fake) Attrs(_ context.Context, selector, name string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries++
	var out []string
	for _, el := range f.Elements[selector] {
		out = append(out, el.Attrs[name])
	}
	return out, nil
}

func (f *Fake) ChildAttrs(_ context.Context, selector, child, name string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries++
	var out [][]string
	for _, el := range f.Elements[selector] {
		values := []string{}
		for _, c := range el.Children[child] {
			values = append(values, c.Attrs[name])
		}
		out = append(out, values)
	}
	return out, nil
}

func (f *Fake) Click(_ context.Context, selector string, textPattern *regexp.Regexp) (bool, error) {
	f.mu.Lock()
	f.Queries++
	found := false
	for _, el := range f.Elements[selector] {
		if textPattern == nil || textPattern.MatchString(el.Text) {
			found = true
			break
		}
	}
	if found {
		f.Clicks = append(f.Clicks, selector)
	}
	hook := f.OnClick[selector]
	f.mu.Unlock()

	if found && hook != nil {
		hook(f)
	}
	return found, nil
}

func (f *Fake) Selection(context.Context) (string, error) { return f.SelectionText, nil }

func (f *Fake) InsertText(_ context.Context, selector, text string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Elements[selector]) == 0 {
		return false, nil
	}
	if f.Inserted == nil {
		f.Inserted = make(map[string]string)
	}
	f.Inserted[selector] = text
	return true, nil
}

func (f *Fake) ResourceURLs(context.Context) ([]string, error) { return f.Resources, nil }

func (f *Fake) PostPlayerResponse(_ context.Context, channel string, deliver func(bridge.Message) bool) error {
	if f.SilentBridge {
		return nil
	}
	payload := f.PlayerResponse
	if payload == nil {
		payload = json.RawMessage("null")
	}
	deliver(bridge.Message{Channel: channel, Payload: payload})
	return nil
}

// Set replaces the elements under selector.
func (f *Fake) Set(selector string, els ...Element) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Elements == nil {
		f.Elements = make(map[string][]Element)
	}
	f.Elements[selector] = els
}

// Texts builds elements carrying only text.
func Texts(texts ...string) []Element {
	out := make([]Element, 0, len(texts))
	for _, t := range texts {
		out = append(out, Element{Text: t})
	}
	return out
}
