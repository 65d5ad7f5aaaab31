/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filestore

import (
	"encoding/xml"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/suparena/objectstore/errors"
)

// Supported formats.
const (
	FormatXML  = "xml"
	FormatYAML = "yaml"
)

const idAttr = "id"

// Codec reads and writes the records of one file.
type Codec interface {
	// Format returns the format name, also used as the file extension.
	Format() string
	Decode(r io.Reader) ([]Record, error)
	Encode(w io.Writer, records []Record) error
}

// CodecFor returns the codec of a format name.
func CodecFor(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case FormatXML:
		return XMLCodec{}, nil
	case FormatYAML, "yml":
		return YAMLCodec{}, nil
	default:
		return nil, errors.NewConfigurationError("format", fmt.Sprintf("unsupported file format %q", format), nil)
	}
}

// recordKey validates a stored key. Negative keys mean "no key".
func recordKey(id int64) (int64, bool) {
	if id < 0 {
		return 0, false
	}
	return id, true
}

// XMLCodec stores records as <object> elements under an <objects> root.
// The key is the id attribute; other attributes are stored next to it.
type XMLCodec struct{}

type xmlDocument struct {
	XMLName xml.Name    `xml:"objects"`
	Objects []xmlObject `xml:"object"`
}

type xmlObject struct {
	XMLName  xml.Name     `xml:"object"`
	Attrs    []xml.Attr   `xml:",any,attr"`
	Children []xmlElement `xml:",any"`
}

type xmlElement struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
}

func (XMLCodec) Format() string { return FormatXML }

func (XMLCodec) Decode(r io.Reader) ([]Record, error) {
	var doc xmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(doc.Objects))
	for _, obj := range doc.Objects {
		rec := Record{Attributes: map[string]string{}}
		for _, a := range obj.Attrs {
			if a.Name.Local != idAttr {
				rec.Attributes[a.Name.Local] = a.Value
				continue
			}
			// Unparseable ids are treated like missing ones.
			if id, err := strconv.ParseInt(strings.TrimSpace(a.Value), 10, 64); err == nil {
				rec.ID, rec.HasID = recordKey(id)
			}
		}
		for _, c := range obj.Children {
			el := Element{Name: c.XMLName.Local, Text: strings.TrimSpace(c.Text)}
			if len(c.Attrs) > 0 {
				el.Attributes = make(map[string]string, len(c.Attrs))
				for _, a := range c.Attrs {
					el.Attributes[a.Name.Local] = a.Value
				}
			}
			rec.Children = append(rec.Children, el)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (XMLCodec) Encode(w io.Writer, records []Record) error {
	doc := xmlDocument{Objects: make([]xmlObject, 0, len(records))}
	for _, rec := range records {
		var obj xmlObject
		if rec.HasID {
			obj.Attrs = append(obj.Attrs, xml.Attr{Name: xml.Name{Local: idAttr}, Value: strconv.FormatInt(rec.ID, 10)})
		}
		obj.Attrs = append(obj.Attrs, xmlAttrs(rec.Attributes, idAttr)...)
		for _, c := range rec.Children {
			obj.Children = append(obj.Children, xmlElement{
				XMLName: xml.Name{Local: c.Name},
				Attrs:   xmlAttrs(c.Attributes, ""),
				Text:    c.Text,
			})
		}
		doc.Objects = append(doc.Objects, obj)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func xmlAttrs(m map[string]string, skip string) []xml.Attr {
	attrs := make([]xml.Attr, 0, len(m))
	for _, k := range sortedKeys(m) {
		if k == skip {
			continue
		}
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: k}, Value: m[k]})
	}
	return attrs
}

// YAMLCodec stores records as a list under an "objects" key.
type YAMLCodec struct{}

type yamlDocument struct {
	Objects []yamlObject `yaml:"objects"`
}

type yamlObject struct {
	ID         *int64            `yaml:"id,omitempty"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
	Children   []yamlElement     `yaml:"children,omitempty"`
}

type yamlElement struct {
	Name       string            `yaml:"name"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
	Text       string            `yaml:"text,omitempty"`
}

func (YAMLCodec) Format() string { return FormatYAML }

func (YAMLCodec) Decode(r io.Reader) ([]Record, error) {
	var doc yamlDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if stderrors.Is(err, io.EOF) {
			return []Record{}, nil
		}
		return nil, err
	}

	records := make([]Record, 0, len(doc.Objects))
	for _, obj := range doc.Objects {
		rec := Record{Attributes: obj.Attributes}
		if rec.Attributes == nil {
			rec.Attributes = map[string]string{}
		}
		if obj.ID != nil {
			rec.ID, rec.HasID = recordKey(*obj.ID)
		}
		for _, c := range obj.Children {
			rec.Children = append(rec.Children, Element{Name: c.Name, Attributes: c.Attributes, Text: c.Text})
		}
		records = append(records, rec)
	}
	return records, nil
}

func (YAMLCodec) Encode(w io.Writer, records []Record) error {
	doc := yamlDocument{Objects: make([]yamlObject, 0, len(records))}
	for _, rec := range records {
		obj := yamlObject{Attributes: rec.Attributes}
		if rec.HasID {
			id := rec.ID
			obj.ID = &id
		}
		for _, c := range rec.Children {
			obj.Children = append(obj.Children, yamlElement{Name: c.Name, Attributes: c.Attributes, Text: c.Text})
		}
		doc.Objects = append(doc.Objects, obj)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
