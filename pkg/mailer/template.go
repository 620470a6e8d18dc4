package mailer

import (
	"bytes"
	"html/template"
)

// Template renders a typed context into the HTML and plain-text bodies of a
// message. The text source is optional.
type Template[T any] struct {
	name string
	html *template.Template
	text *template.Template
}

func NewTemplate[T any](name, htmlSrc, textSrc string) (*Template[T], error) {
	htmlTmpl, err := template.New(name + "_html").Parse(htmlSrc)
	if err != nil {
		return nil, err
	}

	var textTmpl *template.Template
	if textSrc != "" {
		textTmpl, err = template.New(name + "_text").Parse(textSrc)
		if err != nil {
			return nil, err
		}
	}

	return &Template[T]{name: name, html: htmlTmpl, text: textTmpl}, nil
}

func (t *Template[T]) Name() string { return t.name }

func (t *Template[T]) Render(data T) (html string, text string, err error) {
	var htmlBuf bytes.Buffer
	if err := t.html.Execute(&htmlBuf, data); err != nil {
		return "", "", err
	}

	var textBuf bytes.Buffer
	if t.text != nil {
		if err := t.text.Execute(&textBuf, data); err != nil {
			return "", "", err
		}
	}

	return htmlBuf.String(), textBuf.String(), nil
}
