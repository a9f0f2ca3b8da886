package textio

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// Destinations whose content is not document text.
var rtfSkipped = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "object": true, "fldinst": true, "filetbl": true,
	"header": true, "headerl": true, "headerr": true, "headerf": true,
	"footer": true, "footerl": true, "footerr": true, "footerf": true,
	"listtable": true, "listoverridetable": true, "revtbl": true, "rsidtbl": true,
	"generator": true, "xmlnstbl": true, "themedata": true, "colorschememapping": true,
	"latentstyles": true, "datastore": true, "mmathPr": true, "pgdsctbl": true,
}

var rtfText = map[string]string{
	"par": "\n", "line": "\n", "sect": "\n", "page": "\n", "row": "\n",
	"tab": "\t", "cell": "\t",
	"emdash": "\u2014", "endash": "\u2013", "bullet": "\u2022",
	"lquote": "\u2018", "rquote": "\u2019", "ldblquote": "\u201c", "rdblquote": "\u201d",
}

type rtfGroup struct {
	skip bool
	uc   int // fallback characters following \uN
}

// StripRTF converts an RTF document to plain text. \'hh escapes are decoded
// in the document code page (\ansicpg), defaulting to Windows-1252; \uN
// escapes are decoded as UTF-16 code units.
func StripRTF(data []byte) string {
	src := string(data)

	var (
		out      strings.Builder
		pending  []byte
		stack    []rtfGroup
		cur      = rtfGroup{uc: 1}
		codepage encoding.Encoding = charmap.Windows1252
		fallback int
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		if b, err := codepage.NewDecoder().Bytes(pending); err == nil {
			out.Write(b)
		}
		pending = pending[:0]
	}
	emit := func(s string) {
		if cur.skip {
			return
		}
		flush()
		out.WriteString(s)
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch c {
		case '{':
			flush()
			stack = append(stack, cur)
			i++
			if strings.HasPrefix(src[i:], `\*`) {
				cur.skip = true
				i += 2
			}
		case '}':
			flush()
			if n := len(stack); n > 0 {
				cur = stack[n-1]
				stack = stack[:n-1]
			}
			i++
		case '\r', '\n':
			i++
		case '\\':
			i++
			if i >= len(src) {
				break
			}
			n := src[i]
			switch {
			case n == '\'':
				hex := ""
				if i+3 <= len(src) {
					hex = src[i+1 : i+3]
				}
				i += 3
				b, err := strconv.ParseUint(hex, 16, 8)
				if err != nil {
					continue
				}
				if fallback > 0 {
					fallback--
					continue
				}
				if !cur.skip {
					pending = append(pending, byte(b))
				}
			case isLetter(n):
				start := i
				for i < len(src) && isLetter(src[i]) {
					i++
				}
				word := src[start:i]
				pstart := i
				if i < len(src) && src[i] == '-' {
					i++
				}
				for i < len(src) && src[i] >= '0' && src[i] <= '9' {
					i++
				}
				param, hasParam := 0, false
				if i > pstart {
					if v, err := strconv.Atoi(src[pstart:i]); err == nil {
						param, hasParam = v, true
					}
				}
				if i < len(src) && src[i] == ' ' {
					i++
				}

				switch {
				case rtfSkipped[word]:
					cur.skip = true
				case word == "ansicpg" && hasParam:
					flush()
					codepage = codepageFor(param)
				case word == "uc" && hasParam:
					cur.uc = param
				case word == "u" && hasParam:
					if param < 0 {
						param += 65536
					}
					emit(string(rune(param)))
					fallback = cur.uc
				default:
					if s, ok := rtfText[word]; ok {
						emit(s)
					}
				}
			case n == '\\' || n == '{' || n == '}':
				i++
				if fallback > 0 {
					fallback--
					continue
				}
				emit(string(n))
			case n == '\r' || n == '\n':
				i++
				emit("\n")
			case n == '~':
				i++
				emit(" ")
			case n == '_':
				i++
				emit("-")
			default:
				i++
			}
		default:
			i++
			if fallback > 0 {
				fallback--
				continue
			}
			if !cur.skip {
				flush()
				out.WriteByte(c)
			}
		}
	}
	flush()
	return out.String()
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func codepageFor(cp int) encoding.Encoding {
	switch cp {
	case 936:
		return simplifiedchinese.GBK
	case 54936:
		return simplifiedchinese.GB18030
	case 1250:
		return charmap.Windows1250
	case 1251:
		return charmap.Windows1251
	default:
		return charmap.Windows1252
	}
}
