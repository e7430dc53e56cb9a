package internal

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
)

var reTags = regexp.MustCompile(`<[^>]+>`)

// Row maps a lowercased header to its cell text.
type Row map[string]string

type Table struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
	Page    int      `json:"page,omitempty"`
}

type CostingFactors struct {
	NetMargin    float64 `json:"net_margin"`
	Freight      float64 `json:"freight"`
	Customs      float64 `json:"customs"`
	Installation float64 `json:"installation"`
	ExchangeRate float64 `json:"exchange_rate"`
	Additional   float64 `json:"additional"`
}

func DefaultCostingFactors() CostingFactors {
	return CostingFactors{ExchangeRate: 1}
}

// UnmarshalJSON starts from the defaults so that absent fields have no effect.
func (f *CostingFactors) UnmarshalJSON(data []byte) error {
	type plain CostingFactors
	out := plain(DefaultCostingFactors())
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decode costing factors: %w", err)
	}
	*f = CostingFactors(out)
	return nil
}

type CostedTable struct {
	Table
	Factors CostingFactors `json:"factors_applied"`
}

// SourceRow is one <tr> of a layout table block.
type SourceRow struct {
	Cells        []string `json:"cells"`
	HeaderMarkup bool     `json:"header_markup,omitempty"`
}

// Text is the row's cell text with markup removed.
func (r SourceRow) Text() string {
	return strings.TrimSpace(reTags.ReplaceAllString(strings.Join(r.Cells, " "), ""))
}

type SourceTable struct {
	Rows []SourceRow `json:"rows"`
}

type PageTables struct {
	Page   int           `json:"page"`
	Tables []SourceTable `json:"tables"`
}

type StitchedTable struct {
	Rows      []SourceRow `json:"rows"`
	HasHeader bool        `json:"has_header"`
	RowCount  int         `json:"row_count"`
	PageCount int         `json:"page_count"`
}

// Table converts the stitched rows into the canonical table shape. Rows whose
// cell count differs from the header count are dropped.
func (s StitchedTable) Table() Table {
	if len(s.Rows) == 0 {
		return Table{}
	}

	data := s.Rows
	var headers []string
	if s.HasHeader {
		for _, c := range s.Rows[0].Cells {
			headers = append(headers, strings.ToLower(strings.TrimSpace(reTags.ReplaceAllString(c, ""))))
		}
		data = s.Rows[1:]
	} else {
		for i := range s.Rows[0].Cells {
			headers = append(headers, fmt.Sprintf("column %d", i+1))
		}
	}

	out := Table{Headers: headers, Rows: make([]Row, 0, len(data))}
	for _, r := range data {
		if len(r.Cells) != len(headers) {
			continue
		}
		row := Row{}
		for i, h := range headers {
			row[h] = strings.TrimSpace(r.Cells[i])
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func (s StitchedTable) HTML() string {
	var b strings.Builder
	b.WriteString("<table border=\"1\">\n<tbody>\n")
	for _, r := range s.Rows {
		tag := "td"
		if r.HeaderMarkup {
			tag = "th"
		}
		b.WriteString("<tr>")
		for _, c := range r.Cells {
			if !strings.Contains(c, "<img") {
				c = html.EscapeString(c)
			}
			fmt.Fprintf(&b, "<%s>%s</%s>", tag, c, tag)
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n")
	return b.String()
}

type Category string

type Subcategory string

const (
	CategorySeating Category = "seating"
	CategoryDesking Category = "desking"
	CategoryGeneral Category = "general"

	ExecutiveChairs  Subcategory = "executive_chairs"
	TaskChairs       Subcategory = "task_chairs"
	VisitorChairs    Subcategory = "visitor_chairs"
	ConferenceChairs Subcategory = "conference_chairs"
	Sofas            Subcategory = "sofas"
	LoungeSeating    Subcategory = "lounge_seating"

	ExecutiveDesks Subcategory = "executive_desks"
	Workstations   Subcategory = "workstations"
	MeetingTables  Subcategory = "meeting_tables"
	Pedestals      Subcategory = "pedestals"
	Cabinets       Subcategory = "cabinets"
	Lockers        Subcategory = "lockers"
	Partitions     Subcategory = "partitions"

	SubcategoryGeneral Subcategory = "general"
)

type Classification struct {
	Category    Category    `json:"category"`
	Subcategory Subcategory `json:"subcategory"`
}

type Item struct {
	Table       int      `json:"table"`
	Row         int      `json:"row"`
	SerialNo    string   `json:"serial_no,omitempty"`
	Description string   `json:"description"`
	Qty         *float64 `json:"qty"`
	Unit        *string  `json:"unit"`
	UnitRate    *float64 `json:"unit_rate"`
	Total       *float64 `json:"total"`
	Brand       string   `json:"brand,omitempty"`
	Dimensions  string   `json:"dimensions,omitempty"`
	Image       string   `json:"image,omitempty"`
	Classification
}

type Tier string

const (
	TierBudgetary Tier = "budgetary"
	TierMidRange  Tier = "mid_range"
	TierHighEnd   Tier = "high_end"
)

type Alternative struct {
	Tier              Tier        `json:"tier"`
	Brand             string      `json:"brand"`
	Country           string      `json:"country,omitempty"`
	Website           string      `json:"website,omitempty"`
	Model             string      `json:"model"`
	Subcategory       Subcategory `json:"subcategory"`
	PriceRange        string      `json:"price_range"`
	Features          []string    `json:"features,omitempty"`
	EstimatedUnitRate float64     `json:"estimated_unit_rate"`
	EstimatedTotal    *float64    `json:"estimated_total"`
	Score             float64     `json:"score"`
}

type ItemAlternatives struct {
	Item         Item          `json:"item"`
	Alternatives []Alternative `json:"alternatives"`
}

type ExtractionResult struct {
	LayoutParsingResults []LayoutPage `json:"layoutParsingResults"`
}

type LayoutPage struct {
	Markdown     LayoutMarkdown `json:"markdown"`
	PrunedResult PrunedResult   `json:"prunedResult"`
}

type LayoutMarkdown struct {
	Text   string            `json:"text"`
	Images map[string]string `json:"images,omitempty"`
}

type PrunedResult struct {
	ParsingResList []LayoutBlock `json:"parsing_res_list"`
}

type LayoutBlock struct {
	BlockLabel   string `json:"block_label"`
	BlockContent string `json:"block_content"`
}

type FileKind string

const (
	KindPDF   FileKind = "pdf"
	KindImage FileKind = "image"
	KindXLSX  FileKind = "xlsx"
)

type FileStatus string

const (
	StatusUploaded  FileStatus = "uploaded"
	StatusExtracted FileStatus = "extracted"
	StatusCosted    FileStatus = "costed"
	StatusStitched  FileStatus = "stitched"
)

type FileRecord struct {
	SessionID    string     `json:"session_id"`
	FileID       string     `json:"file_id"`
	OriginalName string     `json:"original_name"`
	StoredPath   string     `json:"stored_path"`
	Kind         FileKind   `json:"kind"`
	PageCount    int        `json:"page_count"`
	Status       FileStatus `json:"status"`
	CreatedAt    string     `json:"created_at"`
	UpdatedAt    string     `json:"updated_at"`
}

type Stage string

const (
	StageExtraction   Stage = "extraction"
	StageTables       Stage = "tables"
	StageCosted       Stage = "costed"
	StageStitched     Stage = "stitched"
	StageItems        Stage = "items"
	StageAlternatives Stage = "alternatives"
)

// FetchedMail is one raw message pulled from a mailbox connector.
type FetchedMail struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type MailStatus string

const (
	MailFetched   MailStatus = "fetched"
	MailProcessed MailStatus = "processed"
	MailSkipped   MailStatus = "skipped"
	MailFailed    MailStatus = "failed"
)

type MailRecord struct {
	ID         int        `json:"id"`
	Provider   string     `json:"provider"`
	MessageID  string     `json:"message_id"`
	Subject    string     `json:"subject"`
	Sender     string     `json:"sender"`
	ReceivedAt string     `json:"received_at"`
	Hash       string     `json:"hash"`
	RawRef     string     `json:"raw_ref"`
	Status     MailStatus `json:"status"`
	SessionID  string     `json:"session_id,omitempty"`
	FileID     string     `json:"file_id,omitempty"`
	Error      string     `json:"error,omitempty"`
}
