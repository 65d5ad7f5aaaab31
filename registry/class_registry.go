/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sync"
)

// ClassRegistry maps Go types to stable class names. Class names label
// managers, metrics and log lines, and drivers derive storage locations from
// them (file names, table names, key prefixes).

var (
	classNames = make(map[reflect.Type]string)
	classTypes = make(map[string]reflect.Type)
	mu         sync.RWMutex
)

// TypeOf returns the reflect.Type used to identify class T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// RegisterClassName associates type T with the given class name.
// It panics if the name is empty or already bound to a different type, or if T
// already carries a different name.
func RegisterClassName[T any](name string) {
	t := TypeOf[T]()
	if name == "" {
		panic(fmt.Sprintf("class registry: empty class name for %v", t))
	}

	mu.Lock()
	defer mu.Unlock()
	if existing, ok := classTypes[name]; ok && existing != t {
		panic(fmt.Sprintf("class registry: name %q already registered for %v", name, existing))
	}
	if existing, ok := classNames[t]; ok && existing != name {
		panic(fmt.Sprintf("class registry: %v already registered as %q", t, existing))
	}
	classNames[t] = name
	classTypes[name] = t
}

// ClassName returns the registered name of T, or a name derived from the type.
func ClassName[T any]() string {
	return ClassNameOf(TypeOf[T]())
}

// ClassNameOf returns the registered name of t, or a name derived from the type:
// pointers are dereferenced and the bare type name is used.
func ClassNameOf(t reflect.Type) string {
	mu.RLock()
	name, ok := classNames[t]
	mu.RUnlock()
	if ok {
		return name
	}
	return derivedName(t)
}

// LookupClass returns the type registered under name, if any.
func LookupClass(name string) (reflect.Type, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := classTypes[name]
	return t, ok
}

func derivedName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
