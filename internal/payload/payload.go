// Package payload распознаёт ячейки с встроенными файлами (data URI в base64)
// и превращает их в безопасную ссылку на скачивание.
package payload

import (
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/safehtml"
	"github.com/google/safehtml/template"
	"github.com/google/safehtml/uncheckedconversions"
)

const marker = "base64,"

var downloadTmpl = template.Must(template.New("download").Parse(`<a href="{{.}}" download>Download file</a>`))

// заголовок data URI без параметров, способных сломать атрибут
var dataHeader = regexp.MustCompile(`^data:[a-zA-Z0-9!#$&.+\-^_]+/[a-zA-Z0-9!#$&.+\-^_]+(;[a-zA-Z0-9\-]+=[a-zA-Z0-9\-.]+)*;$`)

// segment возвращает данные между первым "base64," и следующим за ним (или концом строки).
func segment(s string) (string, bool) {
	i := strings.Index(s, marker)
	if i < 0 {
		return "", false
	}
	data := s[i+len(marker):]
	if j := strings.Index(data, marker); j >= 0 {
		data = data[:j]
	}
	return data, true
}

// canonical: data непуст и переживает decode/encode без изменений.
func canonical(data string) ([]byte, bool) {
	if data == "" {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil || base64.StdEncoding.EncodeToString(raw) != data {
		return nil, false
	}
	return raw, true
}

// Detect сообщает, что v — строка, у которой сегмент после первого "base64,"
// (до следующего маркера) является каноничным base64.
func Detect(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	data, ok := segment(s)
	if !ok {
		return "", false
	}
	if _, ok := canonical(data); !ok {
		return "", false
	}
	return s, true
}

// Download: ячейка, заменённая ссылкой на скачивание.
type Download struct {
	HTML safehtml.HTML
	Size int
}

func (d Download) String() string { return d.HTML.String() }

func (d Download) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"kind"`
		HTML string `json:"html"`
		Size int    `json:"size"`
	}{Kind: "download", HTML: d.HTML.String(), Size: d.Size})
}

// Render строит ссылку для значения, прошедшего Detect.
func Render(uri string) (Download, error) {
	html, err := downloadTmpl.ExecuteToHTML(href(uri))
	if err != nil {
		return Download{}, err
	}
	size := 0
	if data, ok := segment(uri); ok {
		if raw, ok := canonical(data); ok {
			size = len(raw)
		}
	}
	return Download{HTML: html, Size: size}, nil
}

// href доверяет только data URI с проверенным заголовком и телом, целиком
// состоящим из base64; остальное проходит через стандартный санитайзер.
func href(uri string) safehtml.URL {
	i := strings.Index(uri, marker)
	if i > 0 && dataHeader.MatchString(uri[:i]) {
		if _, ok := canonical(uri[i+len(marker):]); ok {
			return uncheckedconversions.URLFromStringKnownToSatisfyTypeContract(uri)
		}
	}
	return safehtml.URLSanitized(uri)
}

// Substitute заменяет распознанные ячейки строки на Download.
// Ошибки рендера проглатываются: ячейка остаётся как есть.
func Substitute(row map[string]any) int {
	n := 0
	for k, v := range row {
		uri, ok := Detect(v)
		if !ok {
			continue
		}
		d, err := Render(uri)
		if err != nil {
			continue
		}
		row[k] = d
		n++
	}
	return n
}
