/*
Copyright 2025 Prodflow Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package adf converts between plain text and the Atlassian Document Format
// used by the Jira v3 REST API for rich-text fields. The round trip is
// lossy-safe for plain paragraphs only; formatting marks are discarded.
package adf

import "strings"

// Node is a single node in an Atlassian document tree. Only the fields the
// codec cares about are modeled; anything else in the wire payload is
// ignored on decode.
type Node struct {
	Type    string `json:"type,omitempty"`
	Text    string `json:"text,omitempty"`
	Content []Node `json:"content,omitempty"`
}

// Document is the root of an Atlassian document.
type Document struct {
	Version int    `json:"version"`
	Type    string `json:"type"`
	Content []Node `json:"content,omitempty"`
}

// FromText wraps plain text as a structured document, one paragraph per line.
func FromText(text string) *Document {
	doc := &Document{Version: 1, Type: "doc"}
	for _, line := range strings.Split(text, "\n") {
		paragraph := Node{Type: "paragraph"}
		if line != "" {
			paragraph.Content = []Node{{Type: "text", Text: line}}
		}
		doc.Content = append(doc.Content, paragraph)
	}
	return doc
}

// PlainText walks the document tree depth-first, concatenating every leaf
// text node and joining sibling blocks with a newline. Unknown or empty node
// kinds contribute nothing; decoding an arbitrary document never fails.
func (d *Document) PlainText() string {
	if d == nil {
		return ""
	}
	blocks := make([]string, 0, len(d.Content))
	for _, node := range d.Content {
		blocks = append(blocks, leafText(node))
	}
	return strings.TrimSpace(strings.Join(blocks, "\n"))
}

// leafText renders a node's subtree. Sibling blocks (nodes with their own
// content, like the paragraphs inside a blockquote) are newline-separated at
// every depth; inline leaves within a block concatenate as-is.
func leafText(n Node) string {
	if len(n.Content) == 0 {
		return n.Text
	}
	var b strings.Builder
	for i, child := range n.Content {
		if i > 0 && (len(child.Content) > 0 || len(n.Content[i-1].Content) > 0) {
			b.WriteString("\n")
		}
		b.WriteString(leafText(child))
	}
	return b.String()
}
