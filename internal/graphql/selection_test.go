package graphql

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type tag struct {
	ID      string
	Name    string
	Created *time.Time
	Note    *string
}

var tagSelection = Select("Tag", func(f *Fields) tag {
	return tag{
		ID:      f.ID("id"),
		Name:    f.String("name"),
		Created: f.OptTime("createdAt"),
		Note:    f.OptString("note"),
	}
})

type post struct {
	Title string
	Words int
	Tags  []tag
}

var postSelection = Select("Post", func(f *Fields) post {
	return post{
		Title: f.String("title"),
		Words: f.Int("wordCount"),
		Tags:  List(f, "tags", tagSelection),
	}
})

type postResult struct {
	Post  *post
	Codes *[]string
}

var postErrorSelection = Select("PostError", func(f *Fields) []string {
	return f.Strings("errorCodes")
})

var postSuccessSelection = Select("PostSuccess", func(f *Fields) post {
	return One(f, "post", postSelection)
})

var postResultSelection = Select("PostResult", func(f *Fields) postResult {
	return postResult{
		Post:  On(f, postSuccessSelection),
		Codes: On(f, postErrorSelection),
	}
})

func TestSelectionString(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"flat", tagSelection.String(), "{ id name createdAt note }"},
		{"nested", postSelection.String(), "{ title wordCount tags { id name createdAt note } }"},
		{
			"fragments",
			postResultSelection.String(),
			"{ __typename ... on PostSuccess { post { title wordCount tags { id name createdAt note } } } ... on PostError { errorCodes } }",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("String() = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestDecodeOptionalFields(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantCreated bool
		wantNote    bool
	}{
		{"absent", `{"id":"1","name":"go"}`, false, false},
		{"null", `{"id":"1","name":"go","createdAt":null,"note":null}`, false, false},
		{"present", `{"id":"1","name":"go","createdAt":"2024-03-01T10:00:00.000Z","note":"hi"}`, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tagSelection.Decode(json.RawMessage(tt.payload))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.ID != "1" || got.Name != "go" {
				t.Errorf("required fields = %q/%q", got.ID, got.Name)
			}
			if (got.Created != nil) != tt.wantCreated {
				t.Errorf("Created present = %v, want %v", got.Created != nil, tt.wantCreated)
			}
			if (got.Note != nil) != tt.wantNote {
				t.Errorf("Note present = %v, want %v", got.Note != nil, tt.wantNote)
			}
		})
	}
}

func TestDecodeRequiredFieldMissing(t *testing.T) {
	for _, payload := range []string{`{"id":"1"}`, `{"id":"1","name":null}`} {
		_, err := tagSelection.Decode(json.RawMessage(payload))
		if !errors.Is(err, ErrMissingField) {
			t.Fatalf("Decode(%s) error = %v, want ErrMissingField", payload, err)
		}
		var mf *MissingFieldError
		if !errors.As(err, &mf) || mf.Type != "Tag" || mf.Field != "name" {
			t.Fatalf("Decode(%s) error = %#v, want Tag.name", payload, err)
		}
	}
}

func TestDecodeNestedFailurePropagates(t *testing.T) {
	payload := `{"title":"t","wordCount":3,"tags":[{"id":"1","name":"a"},{"id":"2"}]}`
	_, err := postSelection.Decode(json.RawMessage(payload))
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected nested missing field to fail the decode, got %v", err)
	}
}

func TestDecodeTypeMismatch(t *testing.T) {
	_, err := postSelection.Decode(json.RawMessage(`{"title":"t","wordCount":"three"}`))
	var te *FieldTypeError
	if !errors.As(err, &te) || te.Field != "wordCount" {
		t.Fatalf("expected FieldTypeError for wordCount, got %v", err)
	}
}

func TestDecodeNumericID(t *testing.T) {
	got, err := tagSelection.Decode(json.RawMessage(`{"id":42,"name":"n"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.ID != "42" {
		t.Errorf("ID = %q, want 42", got.ID)
	}
}

func TestDecodeFragments(t *testing.T) {
	ok, err := postResultSelection.Decode(json.RawMessage(`{"__typename":"PostSuccess","post":{"title":"hello","wordCount":2,"tags":[]}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if ok.Post == nil || ok.Post.Title != "hello" || ok.Codes != nil {
		t.Fatalf("unexpected success result: %+v", ok)
	}

	bad, err := postResultSelection.Decode(json.RawMessage(`{"__typename":"PostError","errorCodes":["NOT_FOUND"]}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if bad.Post != nil || bad.Codes == nil || (*bad.Codes)[0] != "NOT_FOUND" {
		t.Fatalf("unexpected error result: %+v", bad)
	}
}

func TestDecodeNull(t *testing.T) {
	if _, err := tagSelection.Decode(json.RawMessage(`null`)); !errors.Is(err, ErrNullObject) {
		t.Fatalf("expected ErrNullObject, got %v", err)
	}
	tags, err := tagSelection.DecodeList(json.RawMessage(`[]`))
	if err != nil || len(tags) != 0 {
		t.Fatalf("DecodeList([]) = %v, %v", tags, err)
	}
}
