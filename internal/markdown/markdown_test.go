package markdown

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestConvertHTMLString(t *testing.T) {
	tests := []struct {
		name string
		base string
		html string
		want string
	}{
		{name: "empty", html: "", want: ""},
		{name: "whitespace only", html: "  \n\t ", want: ""},
		{name: "paragraph collapses whitespace", html: "<p>Hello   \n World</p>", want: "Hello World"},
		{name: "heading then paragraph", html: "<h2>Title</h2><p>Body</p>", want: "## Title\n\nBody"},
		{name: "empty heading dropped", html: "<h2></h2><p>x</p>", want: "x"},
		{
			name: "inline emphasis",
			html: "<p>Some <strong>bold</strong> and <em>italic</em></p>",
			want: "Some **bold** and *italic*",
		},
		{name: "strikethrough", html: "<p><del>gone</del></p>", want: "~~gone~~"},
		{name: "ordered list", html: "<ol><li>One</li><li>Two</li></ol>", want: "1. One\n2. Two"},
		{name: "ordered list start", html: `<ol start="3"><li>a</li><li>b</li></ol>`, want: "3. a\n4. b"},
		{name: "unordered list skips empty items", html: "<ul><li>a</li><li> </li><li>b</li></ul>", want: "- a\n- b"},
		{name: "nested list", html: "<ul><li>A<ul><li>B</li></ul></li></ul>", want: "- A\n  - B"},
		{
			name: "relative link resolved",
			base: "https://example.com/posts/1",
			html: `<a href="/about">About</a>`,
			want: "[About](https://example.com/about)",
		},
		{name: "fragment link is plain text", html: `<a href="#top">Top</a>`, want: "Top"},
		{name: "link without text dropped", html: `<p>x<a href="https://example.com"></a></p>`, want: "x"},
		{
			name: "image",
			base: "https://example.com/posts/",
			html: `<img src="pic.png" alt="A pic">`,
			want: "![A pic](https://example.com/posts/pic.png)",
		},
		{name: "inline data image dropped", html: `<p>a<img src="data:image/png;base64,AAA"></p>`, want: "a"},
		{name: "script and style skipped", html: "<p>Keep</p><script>alert(1)</script><style>p{}</style>", want: "Keep"},
		{
			name: "preformatted",
			html: "<pre><code>fmt.Println(\"hi\")\n</code></pre>",
			want: "```\nfmt.Println(\"hi\")\n```",
		},
		{name: "blockquote", html: "<blockquote><p>Quoted</p></blockquote>", want: "> Quoted"},
		{name: "horizontal rule", html: "<p>a</p><hr><p>b</p>", want: "a\n\n---\n\nb"},
		{
			name: "full document uses body",
			html: "<html><head><title>T</title></head><body><p>Body</p></body></html>",
			want: "Body",
		},
		{name: "blank document", html: "<html></html>", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewConverter(tt.base).ConvertHTMLString(tt.html)
			if got != tt.want {
				t.Errorf("ConvertHTMLString(%q)\n got: %q\nwant: %q", tt.html, got, tt.want)
			}
		})
	}
}

func TestSkipImages(t *testing.T) {
	c := NewConverter("")
	c.SkipImages = true
	if got := c.ConvertHTMLString(`<p>text<img src="https://example.com/a.png" alt="a"></p>`); got != "text" {
		t.Errorf("got %q, want text", got)
	}
}

func TestConvertNode(t *testing.T) {
	doc, err := html.Parse(strings.NewReader("<p>Hi <b>there</b></p>"))
	if err != nil {
		t.Fatal(err)
	}
	got := NewConverter("").Convert(doc)
	if !strings.Contains(got, "Hi **there**") {
		t.Errorf("Convert() = %q", got)
	}
	if NewConverter("").Convert(nil) != "" {
		t.Error("Convert(nil) should be empty")
	}
}

func TestFromHTML(t *testing.T) {
	got := FromHTML(`<h1>Breaking News</h1><p>See <a href="more">more</a>.</p>`, "https://blog.example.com/a/")
	want := "# Breaking News\n\nSee [more](https://blog.example.com/a/more)."
	if got != want {
		t.Errorf("FromHTML() = %q, want %q", got, want)
	}
}
