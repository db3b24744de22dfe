package device

import (
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/sshcollectorpro/netconfig/internal/util"
)

// ErrNoXML 回显中没有 <?xml ... reply> 片段
var ErrNoXML = errors.New("no xml reply in output")

var xmlReply = regexp.MustCompile(`(?s)<\?xml.*reply>`)

// Row XML 中一行的叶子元素（本地名 -> 文本）
type Row map[string]string

// XMLRows 以 rowTag 为行标记遍历 NX-OS 的 "| xml" 回显。
// 元素名按本地名处理（去掉命名空间）；第一个 rowTag 之前的元素全部跳过，
// rowTag 闭合时提交当前行，行外的元素（包括最后一行之后的汇总字段）不进入结果；
// 没有匹配行时返回空结果。
func XMLRows(out, rowTag string) ([]Row, error) {
	doc := xmlReply.FindString(out)
	if doc == "" {
		return nil, ErrNoXML
	}

	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.CharsetReader = util.CharsetReader

	var (
		rows    []Row
		cur     Row
		latched bool
		text    strings.Builder
	)
	commit := func() {
		if len(cur) > 0 {
			rows = append(rows, cur)
		}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == rowTag {
				cur = Row{}
				latched = true
			}
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			switch {
			case t.Name.Local == rowTag:
				if latched {
					commit()
				}
				latched = false
			case latched:
				if v := strings.TrimSpace(text.String()); v != "" {
					cur[t.Name.Local] = v
				}
			}
			text.Reset()
		}
	}
	return rows, nil
}
