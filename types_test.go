package docrag

import "testing"

func TestMetadataCloneIsolation(t *testing.T) {
	src := Metadata{
		MetaTopic:          "crypto",
		MetaKnowledgeBases: []string{"general", "pdfs"},
		"pages":            3,
	}

	c := src.Clone()
	c[MetaTopic] = "changed"
	c[MetaKnowledgeBases].([]string)[0] = "mutated"

	if src[MetaTopic] != "crypto" {
		t.Error("clone shares the map with its source")
	}
	if src[MetaKnowledgeBases].([]string)[0] != "general" {
		t.Error("clone shares string slices with its source")
	}
	if c["pages"] != 3 {
		t.Errorf("clone lost a value: %v", c["pages"])
	}
}

func TestMetadataCloneNil(t *testing.T) {
	var m Metadata
	if m.Clone() != nil {
		t.Error("cloning nil metadata should stay nil")
	}
}

func TestMetadataString(t *testing.T) {
	m := Metadata{MetaTopic: "crypto", "pages": 3}
	if m.String(MetaTopic) != "crypto" {
		t.Errorf("String(topic) = %q", m.String(MetaTopic))
	}
	if m.String("pages") != "" {
		t.Error("String on a non-string value must return empty")
	}
	if m.String("absent") != "" {
		t.Error("String on an absent key must return empty")
	}
	var nilMeta Metadata
	if nilMeta.String(MetaTopic) != "" {
		t.Error("String on nil metadata must return empty")
	}
}

func TestNewDocumentCopiesMetadata(t *testing.T) {
	meta := Metadata{MetaTopic: "crypto"}
	doc := NewDocument("text", meta)
	doc.Metadata[MetaTopic] = "changed"
	if meta[MetaTopic] != "crypto" {
		t.Error("NewDocument aliased the caller's metadata")
	}
}
