/*
Copyright (c) The open62541-go Authors.

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

package subscription

import (
	"strings"

	"github.com/open62541-go/opcua-core/ua"
)

// MaxContentFilterDepth bounds ContentFilter tree recursion on evaluate,
// per the protocol's guidance to cap depth on recursive decoded types
// rather than trust the host call stack (the same treatment
// ua.MaxDiagnosticInfoDepth gives DiagnosticInfo).
const MaxContentFilterDepth = 8

// Operator names a ContentFilter tree node kind.
type Operator int

// Operators.
const (
	OpAnd Operator = iota
	OpOr
	OpNot
	OpEquals
	OpGreaterThan
	OpLessThan
	OpOfType
	OpBetween
	OpInList
	OpLike
	OpIsNull
	OpCast
)

// SimpleAttributeOperand names one field of an event to read - a
// BrowsePath of QualifiedNames rooted at a TypeDefinition, plus the
// attribute to read at the end of the path.
type SimpleAttributeOperand struct {
	TypeDefinitionID ua.NodeId
	BrowsePath       []ua.QualifiedName
	AttributeID      uint32
}

// EventFields is the capability an Engine presents to a ContentFilter so
// it can resolve a SimpleAttributeOperand against one concrete event
// instance.
type EventFields interface {
	Resolve(op SimpleAttributeOperand) ua.Variant
}

// TypedEvent is implemented by EventFields values that know the concrete
// event type NodeId they carry; OfType needs it to compare the event's
// type against the operand.
type TypedEvent interface {
	EventTypeID() ua.NodeId
}

// TypeHierarchy resolves subtype relations between event types. It is a
// capability of whoever owns the type model (typically an adapter over the
// NodeStore's HasSubtype references, see server.NodeStoreTypeHierarchy);
// the filter itself never walks an address space.
type TypeHierarchy interface {
	IsSubtypeOf(sub, super ua.NodeId) bool
}

// ContentFilterElement is one node of the WhereClause tree: an operator
// plus its operands, each of which is either a nested element (Children)
// or a literal/SimpleAttributeOperand leaf (Operands).
type ContentFilterElement struct {
	Op       Operator
	Children []*ContentFilterElement
	Operands []ContentFilterOperand
}

// ContentFilterOperand is a leaf operand: either a literal Variant or a
// SimpleAttributeOperand resolved against the event being evaluated.
type ContentFilterOperand struct {
	Literal   *ua.Variant
	Attribute *SimpleAttributeOperand
}

func (o ContentFilterOperand) resolve(event EventFields) ua.Variant {
	if o.Literal != nil {
		return *o.Literal
	}
	if o.Attribute != nil {
		return event.Resolve(*o.Attribute)
	}
	return ua.Variant{}
}

// Evaluate walks the tree rooted at e against event, bounded by
// MaxContentFilterDepth. A tree deeper than the cap evaluates to false
// rather than recursing further. This module has no ContentFilter decoder,
// so trees are built in memory by callers and the cap is checked here.
func (e *ContentFilterElement) Evaluate(event EventFields) bool {
	return e.evaluate(event, nil, 0)
}

// EvaluateWith is Evaluate with a TypeHierarchy supplied, enabling OfType
// to resolve real ancestry instead of only exact type matches.
func (e *ContentFilterElement) EvaluateWith(event EventFields, types TypeHierarchy) bool {
	return e.evaluate(event, types, 0)
}

func (e *ContentFilterElement) evaluate(event EventFields, types TypeHierarchy, depth int) bool {
	if e == nil || depth > MaxContentFilterDepth {
		return false
	}
	switch e.Op {
	case OpAnd:
		for _, c := range e.Children {
			if !c.evaluate(event, types, depth+1) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range e.Children {
			if c.evaluate(event, types, depth+1) {
				return true
			}
		}
		return false
	case OpNot:
		if len(e.Children) != 1 {
			return false
		}
		return !e.Children[0].evaluate(event, types, depth+1)
	case OpEquals:
		return e.binaryCompare(event) == 0
	case OpGreaterThan:
		return e.binaryCompare(event) > 0
	case OpLessThan:
		return e.binaryCompare(event) < 0
	case OpBetween:
		if len(e.Operands) != 3 {
			return false
		}
		v := numeric(e.Operands[0].resolve(event))
		lo := numeric(e.Operands[1].resolve(event))
		hi := numeric(e.Operands[2].resolve(event))
		return v >= lo && v <= hi
	case OpInList:
		if len(e.Operands) < 2 {
			return false
		}
		target := e.Operands[0].resolve(event)
		for _, op := range e.Operands[1:] {
			if variantsEqual(target, op.resolve(event)) {
				return true
			}
		}
		return false
	case OpLike:
		if len(e.Operands) != 2 {
			return false
		}
		s := variantString(e.Operands[0].resolve(event))
		pattern := variantString(e.Operands[1].resolve(event))
		return likeMatch(s, pattern)
	case OpIsNull:
		if len(e.Operands) != 1 {
			return false
		}
		v := e.Operands[0].resolve(event)
		return v.IsEmpty()
	case OpOfType:
		// One operand: the type to test against. The event's own type
		// comes from TypedEvent; an event that can't name its type, or an
		// operand that isn't a NodeId, never matches.
		if len(e.Operands) != 1 {
			return false
		}
		target, ok := e.Operands[0].resolve(event).Value.(ua.NodeId)
		if !ok {
			return false
		}
		typed, ok := event.(TypedEvent)
		if !ok {
			return false
		}
		eventType := typed.EventTypeID()
		if eventType.Equal(target) {
			return true
		}
		return types != nil && types.IsSubtypeOf(eventType, target)
	case OpCast:
		return len(e.Operands) == 1 && !e.Operands[0].resolve(event).IsEmpty()
	default:
		return false
	}
}

func (e *ContentFilterElement) binaryCompare(event EventFields) int {
	if len(e.Operands) != 2 {
		return -2
	}
	a := e.Operands[0].resolve(event)
	b := e.Operands[1].resolve(event)
	if as, ok := a.Value.(string); ok {
		if bs, ok := b.Value.(string); ok {
			return strings.Compare(as, bs)
		}
	}
	av, bv := numeric(a), numeric(b)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func numeric(v ua.Variant) float64 {
	f, _ := asFloat(v.Value)
	return f
}

func variantsEqual(a, b ua.Variant) bool {
	return a.Type == b.Type && a.Value == b.Value
}

func variantString(v ua.Variant) string {
	s, _ := v.Value.(string)
	return s
}

// likeMatch implements the OPC UA LIKE operator's subset of wildcards: '%'
// matches any run of characters, '_' matches exactly one.
func likeMatch(s, pattern string) bool {
	return likeMatchRunes([]rune(s), []rune(pattern))
}

func likeMatchRunes(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		if likeMatchRunes(s, p[1:]) {
			return true
		}
		for i := range s {
			if likeMatchRunes(s[i+1:], p[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(s) == 0 {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	}
}

// EventFilter pairs the SelectClauses (fields to project) with a
// WhereClause (the ContentFilter tree deciding whether an event is
// delivered at all). Types is the hierarchy OfType consults; nil limits
// OfType to exact type matches.
type EventFilter struct {
	Select []SimpleAttributeOperand
	Where  *ContentFilterElement
	Types  TypeHierarchy
}
