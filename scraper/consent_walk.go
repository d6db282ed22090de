package scraper

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// walkNodeBudget bounds the heuristic tree walk. Real consent controls sit
// near the top of the document; a walk that deep has already lost.
const walkNodeBudget = 1500

// affirmativeLabels are the normalized visible texts treated as "accept the
// overlay". Matched as whole strings only: "accept" matches, but a nav link
// reading "accept our newsletter terms" does not.
var affirmativeLabels = map[string]struct{}{
	"accept":             {},
	"accept all":         {},
	"accept all cookies": {},
	"accept cookies":     {},
	"i accept":           {},
	"agree":              {},
	"i agree":            {},
	"allow all":          {},
	"allow all cookies":  {},
	"got it":             {},
}

// clickTarget abstracts one document node for the consent walk. The rod
// binding talks to the live page; tests substitute an in-memory tree.
type clickTarget interface {
	// Label is the node's normalized visible text.
	Label() string
	// Clickable reports whether the node is a button, link, submit or
	// button input, or carries role="button".
	Clickable() bool
	// Visible reports non-hidden computed style and a non-zero box.
	Visible() bool
	// ShadowRoots returns the node's attached shadow roots, if any.
	ShadowRoots() []clickTarget
	// Children returns the node's light-DOM element children.
	Children() []clickTarget
	// Click dispatches a real mouse click on the node.
	Click() error
}

// findAffirmative walks the node, its shadow roots, then its children,
// depth-first, and clicks the first visible clickable whose label is
// affirmative. Shadow-hosted content is searched at its host's position,
// so the first hit is the first candidate in document order.
func findAffirmative(n clickTarget, budget *int) bool {
	if *budget <= 0 {
		return false
	}
	*budget--

	if n.Clickable() && isAffirmativeLabel(n.Label()) && n.Visible() {
		if err := n.Click(); err == nil {
			return true
		}
	}
	for _, root := range n.ShadowRoots() {
		if findAffirmative(root, budget) {
			return true
		}
	}
	for _, child := range n.Children() {
		if findAffirmative(child, budget) {
			return true
		}
	}
	return false
}

// isAffirmativeLabel matches the whole normalized string, never substrings.
func isAffirmativeLabel(label string) bool {
	_, ok := affirmativeLabels[normalizeLabel(label)]
	return ok
}

// normalizeLabel lowercases and collapses all interior whitespace runs so
// "  Accept\n All " and "accept all" compare equal.
func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// rodNode binds clickTarget to a live rod element. Every accessor swallows
// errors: a node that cannot be inspected is simply not a candidate.
type rodNode struct {
	el *rod.Element
}

func (n rodNode) Label() string {
	text, err := n.el.Text()
	if err != nil {
		return ""
	}
	return text
}

func (n rodNode) Clickable() bool {
	res, err := n.el.Eval(`() => {
		const tag = this.tagName ? this.tagName.toLowerCase() : "";
		if (tag === "button" || tag === "a") return true;
		if (tag === "input") {
			const t = (this.type || "").toLowerCase();
			return t === "button" || t === "submit";
		}
		return this.getAttribute && this.getAttribute("role") === "button";
	}`)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

func (n rodNode) Visible() bool {
	visible, err := n.el.Visible()
	return err == nil && visible
}

func (n rodNode) ShadowRoots() []clickTarget {
	root, err := n.el.ShadowRoot()
	if err != nil || root == nil {
		return nil
	}
	return []clickTarget{rodNode{el: root}}
}

func (n rodNode) Children() []clickTarget {
	els, err := n.el.ElementsX("./*")
	if err != nil {
		return nil
	}
	children := make([]clickTarget, 0, len(els))
	for _, el := range els {
		children = append(children, rodNode{el: el})
	}
	return children
}

func (n rodNode) Click() error {
	return clickElement(n.el)
}

// clickElement scrolls the element into view and dispatches a left click.
func clickElement(el *rod.Element) error {
	_ = el.ScrollIntoView() // the click may still land even if this fails
	return el.Click(proto.InputMouseButtonLeft, 1)
}
