package textio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    string
		wantEnc string
	}{
		{"utf-8", []byte("SCENE 1"), "SCENE 1", EncodingUTF8},
		{"utf-8 with bom", append([]byte{0xEF, 0xBB, 0xBF}, "Scene"...), "Scene", EncodingUTF8},
		{"gbk", []byte{0xC4, 0xE3, 0xBA, 0xC3}, "\u4f60\u597d", EncodingGB18030},
		{"empty", nil, "", EncodingUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, enc := Decode(tt.data)
			if got != tt.want {
				t.Errorf("Decode() = %q, want %q", got, tt.want)
			}
			if enc != tt.wantEnc {
				t.Errorf("encoding = %q, want %q", enc, tt.wantEnc)
			}
		})
	}
}

func TestStripRTF(t *testing.T) {
	tests := []struct {
		name string
		rtf  string
		want string
	}{
		{
			name: "paragraphs and windows-1252 escapes",
			rtf:  `{\rtf1\ansi\ansicpg1252 {\fonttbl {\f0 Arial;}}\f0\fs24 SCENE 1\par Hello \'e9t\'e9\par \u20320?\u22909?}`,
			want: "SCENE 1\nHello \u00e9t\u00e9\n\u4f60\u597d",
		},
		{
			name: "gbk code page",
			rtf:  `{\rtf1\ansi\ansicpg936 \'c4\'e3\'ba\'c3}`,
			want: "\u4f60\u597d",
		},
		{
			name: "ignorable destinations",
			rtf:  `{\rtf1{\*\generator Writer;}{\info{\title Draft}}Shot 1A\tab wide}`,
			want: "Shot 1A\twide",
		},
		{
			name: "escaped braces and quotes",
			rtf:  `{\rtf1 a \{b\} c\\d \ldblquote x\rdblquote}`,
			want: "a {b} c\\d \u201cx\u201d",
		},
		{
			name: "raw newlines are not text",
			rtf:  "{\\rtf1 one\r\ntwo\\\nthree}",
			want: "onetwo\nthree",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripRTF([]byte(tt.rtf)); got != tt.want {
				t.Errorf("StripRTF() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "script.txt")
	if err := os.WriteFile(txt, []byte("\n  INT. KITCHEN  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadDocument(txt)
	if err != nil {
		t.Fatalf("ReadDocument() error = %v", err)
	}
	if got != "INT. KITCHEN" {
		t.Errorf("ReadDocument(txt) = %q", got)
	}

	rtf := filepath.Join(dir, "script.RTF")
	if err := os.WriteFile(rtf, []byte(`{\rtf1 INT. HALL\par}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = ReadDocument(rtf)
	if err != nil {
		t.Fatalf("ReadDocument() error = %v", err)
	}
	if got != "INT. HALL" {
		t.Errorf("ReadDocument(rtf) = %q", got)
	}

	if _, err := ReadDocument(filepath.Join(dir, "script.docx")); err == nil {
		t.Error("expected error for missing file")
	}

	other := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadDocument(other); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestIsDocument(t *testing.T) {
	for path, want := range map[string]bool{
		"a.txt": true, "b.RTF": true, "c.csv": false, "d": false,
	} {
		if got := IsDocument(path); got != want {
			t.Errorf("IsDocument(%q) = %v, want %v", path, got, want)
		}
	}
}
