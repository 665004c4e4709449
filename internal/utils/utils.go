// Copyright 2024 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func GetFieldsOfObject(obj *unstructured.Unstructured) map[string]any {
	return map[string]any{
		"name":      obj.GetName(),
		"namespace": obj.GetNamespace(),
		"uid":       obj.GetUID(),
	}
}

func CreateFieldsForOp(operation string, obj *unstructured.Unstructured) map[string]any {
	var objFields = GetFieldsOfObject(obj)
	objFields["operation"] = operation
	return objFields
}

func CreateFieldForResource(resource *schema.GroupVersionResource) map[string]any {
	return map[string]any{
		"group":    resource.Group,
		"resource": resource.Resource,
		"version":  resource.Version,
	}
}

func AsAnySlice(args []string) []any {
	var slice = make([]any, len(args))
	for i, arg := range args {
		slice[i] = arg
	}
	return slice
}

func GetGroupVersionId(obj *unstructured.Unstructured) string {
	var gvk = obj.GroupVersionKind()
	return strings.ToLower(fmt.Sprintf("%ss.%s.%s", gvk.Kind, gvk.Group, gvk.Version))
}

// MatchFieldSelector checks an object against a selector of the form
// "path=value,path2=value2" where each path is a dotted path into the
// object. Only string fields can be matched. An empty selector matches
// everything, a malformed one matches nothing.
func MatchFieldSelector(obj *unstructured.Unstructured, fieldSelector string) bool {
	if fieldSelector == "" {
		return true
	}

	for _, term := range strings.Split(fieldSelector, ",") {
		path, expected, ok := strings.Cut(term, "=")
		if !ok {
			return false
		}

		value, found, err := unstructured.NestedString(obj.Object, strings.Split(path, ".")...)
		if err != nil || !found || value != expected {
			return false
		}
	}

	return true
}
