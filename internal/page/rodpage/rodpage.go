// Package rodpage implements page.Page over a live Chromium tab.
package rodpage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"thirdcoast.systems/browserutility/internal/bridge"
	"thirdcoast.systems/browserutility/internal/page"
)

const bridgeFuncName = "__browserutilityBridge"

var _ page.Page = (*Page)(nil)

// Page drives one tab. It is safe for sequential use by one action at a time.
type Page struct {
	browser  *rod.Browser
	tab      *rod.Page
	launched bool
	created  bool

	exposeOnce sync.Once
	exposeErr  error
	stopExpose func() error

	mu      sync.Mutex
	deliver func(bridge.Message) bool
}

// Options selects the browser and the tab.
type Options struct {
	// ControlURL is a DevTools websocket URL of a running browser. Empty
	// launches a headless Chromium.
	ControlURL string
	// URL selects the open tab at this address, or opens a new one. Empty
	// attaches to the browser's first existing tab.
	URL string
}

// Open connects to (or launches) a browser and selects a tab.
func Open(ctx context.Context, opts Options) (*Page, error) {
	controlURL := strings.TrimSpace(opts.ControlURL)
	launched := false
	if controlURL == "" {
		u, err := launcher.New().Headless(true).Set("mute-audio").Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		launched = true
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	p := &Page{browser: browser, launched: launched}

	pages, err := browser.Pages()
	switch {
	case err != nil:
	case opts.URL != "":
		for _, tab := range pages {
			if info, infoErr := tab.Info(); infoErr == nil && info.URL == opts.URL {
				p.tab = tab
				break
			}
		}
		if p.tab == nil {
			p.tab, err = browser.Page(proto.TargetCreateTarget{URL: opts.URL})
			p.created = err == nil
			if err == nil {
				err = p.tab.WaitLoad()
			}
		}
	case len(pages) == 0:
		err = errors.New("no open tabs")
	default:
		p.tab = pages.First()
	}
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("select tab: %w", err)
	}

	slog.Debug("rod page ready", "url", p.URL(), "launched", launched)
	return p, nil
}

// Close releases the bridge binding, a tab Open created, and the browser
// when Open launched it.
func (p *Page) Close() error {
	if p.stopExpose != nil {
		_ = p.stopExpose()
	}
	if p.launched {
		return p.browser.Close()
	}
	if p.created && p.tab != nil {
		return p.tab.Close()
	}
	return nil
}

func (p *Page) URL() string {
	if p.tab == nil {
		return ""
	}
	info, err := p.tab.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *Page) Title(ctx context.Context) (string, error) {
	res, err := p.eval(ctx, `() => document.title || ""`)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Str()), nil
}

func (p *Page) Texts(ctx context.Context, selector string) ([]string, error) {
	res, err := p.eval(ctx, `(sel) => Array.from(document.querySelectorAll(sel), (e) => e.textContent || "")`, selector)
	if err != nil {
		return nil, err
	}
	return strs(res), nil
}

func (p *Page) Attrs(ctx context.Context, selector, name string) ([]string, error) {
	res, err := p.eval(ctx, `(sel, name) => Array.from(document.querySelectorAll(sel), (e) => {
		const v = e[name] ?? e.getAttribute(name);
		return v == null ? "" : String(v);
	})`, selector, name)
	if err != nil {
		return nil, err
	}
	return strs(res), nil
}

func (p *Page) ChildAttrs(ctx context.Context, selector, child, name string) ([][]string, error) {
	res, err := p.eval(ctx, `(sel, child, name) => Array.from(document.querySelectorAll(sel), (parent) =>
		Array.from(parent.querySelectorAll(child), (e) => {
			const v = e[name] ?? e.getAttribute(name);
			return v == null ? "" : String(v);
		}))`, selector, child, name)
	if err != nil {
		return nil, err
	}
	arr := res.Arr()
	out := make([][]string, 0, len(arr))
	for _, group := range arr {
		out = append(out, strs(group))
	}
	return out, nil
}

// Click matches text in Go so callers can use Go regexp syntax.
func (p *Page) Click(ctx context.Context, selector string, textPattern *regexp.Regexp) (bool, error) {
	els, err := p.tab.Context(ctx).Elements(selector)
	if err != nil {
		return false, err
	}
	for _, el := range els {
		if textPattern != nil {
			text, err := el.Eval(`() => this.textContent || ""`)
			if err != nil || !textPattern.MatchString(text.Value.Str()) {
				continue
			}
		}
		if _, err := el.Eval(`() => this.click()`); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (p *Page) Selection(ctx context.Context) (string, error) {
	res, err := p.eval(ctx, `() => (window.getSelection()?.toString() || "").trim()`)
	if err != nil {
		return "", err
	}
	return res.Str(), nil
}

func (p *Page) InsertText(ctx context.Context, selector, text string) (bool, error) {
	res, err := p.eval(ctx, `(sel, text) => {
		const el = document.querySelector(sel);
		if (!el) return false;
		el.focus();
		document.execCommand("selectAll", false);
		document.execCommand("insertText", false, text);
		el.dispatchEvent(new InputEvent("input", { bubbles: true, data: text, inputType: "insertText" }));
		return true;
	}`, selector, text)
	if err != nil {
		return false, err
	}
	return res.Bool(), nil
}

func (p *Page) ResourceURLs(ctx context.Context) ([]string, error) {
	res, err := p.eval(ctx, `() => {
		try { return performance.getEntriesByType("resource").map((e) => e.name || ""); }
		catch (e) { return []; }
	}`)
	if err != nil {
		return nil, err
	}
	return strs(res), nil
}

// PostPlayerResponse runs a script in the page's own context that reads
// ytInitialPlayerResponse and calls back through an exposed binding.
func (p *Page) PostPlayerResponse(ctx context.Context, channel string, deliver func(bridge.Message) bool) error {
	if err := p.ensureExposed(); err != nil {
		return err
	}

	p.mu.Lock()
	p.deliver = deliver
	p.mu.Unlock()

	_, err := p.eval(ctx, `(fn, channel) => {
		let payload = null;
		try { payload = window.ytInitialPlayerResponse || null; } catch (e) { payload = null; }
		window[fn]({ channel, payload });
	}`, bridgeFuncName, channel)
	return err
}

func (p *Page) ensureExposed() error {
	p.exposeOnce.Do(func() {
		p.stopExpose, p.exposeErr = p.tab.Expose(bridgeFuncName, func(j gson.JSON) (interface{}, error) {
			p.mu.Lock()
			deliver := p.deliver
			p.mu.Unlock()
			if deliver == nil {
				return nil, nil
			}
			msg := bridge.Message{
				Channel: j.Get("channel").Str(),
				Payload: json.RawMessage(j.Get("payload").JSON("", "")),
			}
			deliver(msg)
			return nil, nil
		})
	})
	return p.exposeErr
}

func (p *Page) eval(ctx context.Context, js string, args ...interface{}) (gson.JSON, error) {
	res, err := p.tab.Context(ctx).Evaluate(rod.Eval(js, args...))
	if err != nil {
		return gson.JSON{}, err
	}
	return res.Value, nil
}

func strs(j gson.JSON) []string {
	arr := j.Arr()
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, v.Str())
	}
	return out
}
