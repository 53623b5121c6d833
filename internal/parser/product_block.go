package parser

import (
	"fmt"
	"iter"
	"regexp"
	"strings"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/shopspring/decimal"
)

const (
	pricePrefix = "Preço:"
	stockPrefix = "Disponibilidade:"
	linkPrefix  = "Link:"
	imagePrefix = "Imagem:"
)

var (
	emphasisPattern = regexp.MustCompile(`\*\*.*?\*\*`)
	pricePattern    = regexp.MustCompile(`\d+[.,]\d+`)
)

type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentProduct
)

func (k SegmentKind) String() string {
	if k == SegmentProduct {
		return "product"
	}
	return "text"
}

func (k SegmentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *SegmentKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "product":
		*k = SegmentProduct
	case "text":
		*k = SegmentText
	default:
		return fmt.Errorf("unknown segment kind %q", text)
	}
	return nil
}

type Run struct {
	Text       string `json:"text"`
	Emphasized bool   `json:"emphasized"`
}

// Segment 一段可繪製的內容
// Kind == SegmentText 時使用 Runs，SegmentProduct 時使用 Product
type Segment struct {
	Kind    SegmentKind        `json:"kind"`
	Runs    []Run              `json:"runs,omitempty"`
	Product *model.ProductCard `json:"product,omitempty"`
}

/*
Parser 逐行掃描助理回覆，輸出文字段與商品卡段
商品格式:

	**商品名稱**
	Preço: $0.00
	Disponibilidade: Em estoque
	Link: URL
	Imagem: URL   <- 商品結束

只能往前讀，讀完後不會重新開始
*/
type Parser struct {
	lines     []string
	pos       int
	candidate *model.ProductCard
	pending   []Segment
	flushed   bool
}

func NewParser(text string) *Parser {
	return &Parser{lines: strings.Split(text, "\n")}
}

// Next 取得下一個段落，沒有更多段落時回傳 false
func (p *Parser) Next() (Segment, bool) {
	for len(p.pending) == 0 {
		if p.pos >= len(p.lines) {
			if !p.flushed {
				p.flushed = true
				p.flush()
			}
			if len(p.pending) == 0 {
				return Segment{}, false
			}
			break
		}
		p.consume(p.lines[p.pos])
		p.pos++
	}

	seg := p.pending[0]
	p.pending = p.pending[1:]
	return seg, true
}

// All 以 iterator 方式讀完剩下的段落
func (p *Parser) All() iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		for {
			seg, ok := p.Next()
			if !ok || !yield(seg) {
				return
			}
		}
	}
}

func ParseAll(text string) []Segment {
	var segments []Segment
	for seg := range NewParser(text).All() {
		segments = append(segments, seg)
	}
	return segments
}

func (p *Parser) consume(line string) {
	trimmed := strings.TrimSpace(line)

	switch {
	case p.candidate == nil && isWholeLineBold(trimmed):
		p.candidate = &model.ProductCard{Name: trimmed}
	case p.candidate != nil && strings.HasPrefix(trimmed, pricePrefix):
		p.candidate.PriceDisplay = trimmed
		p.candidate.Price = ParsePrice(trimmed)
	case p.candidate != nil && strings.HasPrefix(trimmed, stockPrefix):
		p.candidate.StockStatus = trimmed
	case p.candidate != nil && strings.HasPrefix(trimmed, linkPrefix):
		p.candidate.Link = stripPrefix(trimmed, linkPrefix)
	case p.candidate != nil && strings.HasPrefix(trimmed, imagePrefix):
		p.candidate.ImageURL = stripPrefix(trimmed, imagePrefix)
		p.flush()
	default:
		if p.candidate != nil {
			// 商品之間的空行不打斷商品
			if trimmed == "" {
				return
			}
			p.flush()
		}
		p.pending = append(p.pending, Segment{Kind: SegmentText, Runs: splitEmphasis(line)})
	}
}

func (p *Parser) flush() {
	if p.candidate == nil {
		return
	}
	p.pending = append(p.pending, Segment{Kind: SegmentProduct, Product: p.candidate})
	p.candidate = nil
}

func isWholeLineBold(trimmed string) bool {
	return len(trimmed) >= 2*len(model.EmphasisMarker) &&
		strings.HasPrefix(trimmed, model.EmphasisMarker) &&
		strings.HasSuffix(trimmed, model.EmphasisMarker)
}

func stripPrefix(line, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, prefix))
}

func splitEmphasis(line string) []Run {
	runs := []Run{}
	last := 0
	for _, loc := range emphasisPattern.FindAllStringIndex(line, -1) {
		if loc[0] > last {
			runs = append(runs, Run{Text: line[last:loc[0]]})
		}
		inner := line[loc[0]+len(model.EmphasisMarker) : loc[1]-len(model.EmphasisMarker)]
		if inner != "" {
			runs = append(runs, Run{Text: inner, Emphasized: true})
		}
		last = loc[1]
	}
	if last < len(line) {
		runs = append(runs, Run{Text: line[last:]})
	}
	return runs
}

// ParsePrice 取價格字串中第一個小數，逗號視為小數點，找不到時為 0
func ParsePrice(display string) decimal.Decimal {
	m := pricePattern.FindString(display)
	if m == "" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(strings.Replace(m, ",", ".", 1))
	if err != nil {
		return decimal.Zero
	}
	return price
}
