/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/objectstore/errors"
)

// Item attributes managed by the driver.
const (
	attrPK         = "PK"
	attrSK         = "SK"
	attrEntityType = "EntityType"
	attrObjectKey  = "ObjectKey"
	attrRelatedKey = "RelatedKey"
)

// GSIConfig holds the configuration for GSI key mappings
type GSIConfig struct {
	// IndexName is the actual GSI name in DynamoDB (e.g., "GSI1")
	IndexName string
	// PartitionKeyName is the actual partition key attribute name in the GSI (e.g., "PK1")
	PartitionKeyName string
	// SortKeyName is the actual sort key attribute name in the GSI (e.g., "SK1")
	SortKeyName string
}

// DefaultGSIConfigs holds the default GSI configurations
var DefaultGSIConfigs = map[string]GSIConfig{
	"GSI1": {
		IndexName:        "GSI1",
		PartitionKeyName: "PK1",
		SortKeyName:      "SK1",
	},
}

// GetGSIConfig returns the GSI configuration for a given index name
func GetGSIConfig(indexName string) (GSIConfig, bool) {
	config, ok := DefaultGSIConfigs[indexName]
	return config, ok
}

// IndexMap maps key attribute names to macro templates.
type IndexMap map[string]string

// DefaultIndexMap keys items by class and primary key, and lists every item
// of a class in GSI1 in key order.
func DefaultIndexMap() IndexMap {
	return IndexMap{
		attrPK: "{class}#{key}",
		attrSK: "{class}#{key}",
		"PK1":  "{class}",
		"SK1":  "{key}",
	}
}

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// validate checks that the base table keys can be computed from a primary key
// alone and that the class index partition only depends on the class.
func (m IndexMap) validate(classIndex GSIConfig) error {
	for _, attr := range []string{attrPK, attrSK} {
		if err := requireMacros(m, attr, "class", "key"); err != nil {
			return err
		}
	}
	if err := requireMacros(m, classIndex.PartitionKeyName, "class"); err != nil {
		return err
	}
	if _, ok := m[classIndex.SortKeyName]; !ok {
		return errors.NewConfigurationError(classIndex.SortKeyName, "missing from index map", nil)
	}
	return nil
}

func requireMacros(m IndexMap, attr string, allowed ...string) error {
	template, ok := m[attr]
	if !ok || template == "" {
		return errors.NewConfigurationError(attr, "missing from index map", nil)
	}
	for _, match := range macroPattern.FindAllStringSubmatch(template, -1) {
		found := false
		for _, a := range allowed {
			if match[1] == a {
				found = true
			}
		}
		if !found {
			return errors.NewConfigurationError(attr, fmt.Sprintf("macro {%s} is not allowed here", match[1]), nil)
		}
	}
	return nil
}

// FormatKey renders a primary key so that string order matches numeric order.
// Negative keys cannot be stored.
func FormatKey(key int64) (string, error) {
	if key < 0 {
		return "", errors.NewValidationError("key", fmt.Sprintf("negative key %d cannot be stored", key))
	}
	return fmt.Sprintf("%019d", key), nil
}

// expand expands one template. Macros other than {class} and {key} are read
// from av; missing attributes expand to "".
func expand(template, class, key string, av map[string]types.AttributeValue) string {
	return macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
		name := strings.Trim(macro, "{}")
		switch name {
		case "class":
			return class
		case "key":
			return key
		}

		val, ok := av[name]
		if !ok {
			return ""
		}

		// Convert 'val' (types.AttributeValue) into a string.
		switch tv := val.(type) {
		case *types.AttributeValueMemberS:
			return tv.Value
		case *types.AttributeValueMemberN:
			return tv.Value
		case *types.AttributeValueMemberBOOL:
			return strconv.FormatBool(tv.Value)
		default:
			// sets, binaries, lists and maps have no key representation
			return ""
		}
	})
}

// expandAll expands every template of m. Attributes expanding to "" are
// omitted, leaving the item out of sparse indexes.
func (m IndexMap) expandAll(class, key string, av map[string]types.AttributeValue) map[string]string {
	res := make(map[string]string, len(m))
	for attr, template := range m {
		if v := expand(template, class, key, av); v != "" {
			res[attr] = v
		}
	}
	return res
}

// primaryKey builds the base table key of a stored object.
func (m IndexMap) primaryKey(class string, key int64) (map[string]types.AttributeValue, error) {
	k, err := FormatKey(key)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: expand(m[attrPK], class, k, nil)},
		attrSK: &types.AttributeValueMemberS{Value: expand(m[attrSK], class, k, nil)},
	}, nil
}

func relationPrefix(relation string) string {
	return "REL#" + relation + "#"
}

// numberAttr reads a numeric attribute.
func numberAttr(item map[string]types.AttributeValue, name string) (int64, bool, error) {
	av, ok := item[name]
	if !ok {
		return 0, false, nil
	}
	var n int64
	if err := attributevalue.Unmarshal(av, &n); err != nil {
		return 0, false, err
	}
	return n, true, nil
}
