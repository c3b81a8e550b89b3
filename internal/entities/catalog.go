package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// LoanStatus is the lifecycle state of a BookInstance.
type LoanStatus string

const (
	LoanStatusManaged   LoanStatus = "m"
	LoanStatusTaken     LoanStatus = "t"
	LoanStatusAvailable LoanStatus = "a"
	LoanStatusReserved  LoanStatus = "r"
)

var loanStatusLabels = map[LoanStatus]string{
	LoanStatusManaged:   "managed",
	LoanStatusTaken:     "taken",
	LoanStatusAvailable: "available",
	LoanStatusReserved:  "reserved",
}

// Label returns the human-readable status name.
func (s LoanStatus) Label() string {
	if label, ok := loanStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s LoanStatus) Valid() bool {
	_, ok := loanStatusLabels[s]
	return ok
}

// ParseLoanStatus accepts either the stored code ("t") or the label ("taken").
func ParseLoanStatus(value string) (LoanStatus, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if s := LoanStatus(value); s.Valid() {
		return s, true
	}
	for code, label := range loanStatusLabels {
		if label == value {
			return code, true
		}
	}
	return "", false
}

const (
	MaxAuthorNameLength    = 50
	MaxGenreNameLength     = 200
	MaxBookTitleLength     = 255
	MaxISBNLength          = 13
	MaxReviewContentLength = 10000
	DisplayGenreLimit      = 3
)

type Author struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FirstName string    `gorm:"size:50;not null" json:"first_name"`
	LastName  string    `gorm:"index;size:50;not null" json:"last_name"`
	Books     []Book    `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL;" json:"books,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a Author) String() string {
	return fmt.Sprintf("%s %s", a.FirstName, a.LastName)
}

// DisplayBooks joins the titles of the loaded Books.
func (a Author) DisplayBooks() string {
	return strings.Join(lo.Map(a.Books, func(b Book, _ int) string { return b.Title }), ", ")
}

type Genre struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Books     []Book    `gorm:"many2many:book_genres;" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (g Genre) String() string {
	return g.Name
}

type Book struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"index;size:255;not null" json:"title"`
	Summary   string         `gorm:"type:text;not null" json:"summary"`
	ISBN      *string        `gorm:"size:13" json:"isbn,omitempty"`
	Cover     string         `gorm:"size:1024" json:"cover,omitempty"` // path relative to the media root
	AuthorID  *uint          `gorm:"index" json:"author_id,omitempty"`
	Author    *Author        `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Genres    []Genre        `gorm:"many2many:book_genres;constraint:OnDelete:CASCADE;" json:"genres,omitempty"`
	Instances []BookInstance `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE;" json:"instances,omitempty"`
	Reviews   []BookReview   `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE;" json:"reviews,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (b Book) String() string {
	author := "None"
	if b.Author != nil {
		author = b.Author.String()
	}
	return fmt.Sprintf("%s - %s", author, b.Title)
}

// DisplayGenre joins the names of the first three loaded genres.
// Display only, never persisted.
func (b Book) DisplayGenre() string {
	names := lo.Map(b.Genres, func(g Genre, _ int) string { return g.Name })
	if len(names) > DisplayGenreLimit {
		names = names[:DisplayGenreLimit]
	}
	return strings.Join(names, ", ")
}

// BookInstance is one lendable copy of a Book.
type BookInstance struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UniqueID  uuid.UUID  `gorm:"type:varchar(36);uniqueIndex;not null;<-:create" json:"unique_id"`
	BookID    uint       `gorm:"index;not null" json:"book_id"`
	Book      Book       `gorm:"foreignKey:BookID" json:"book"`
	DueBack   *time.Time `gorm:"index" json:"due_back,omitempty"`
	Status    LoanStatus `gorm:"size:1;not null;default:'m'" json:"status"`
	ReaderID  *uint      `gorm:"index" json:"reader_id,omitempty"`
	Reader    *User      `gorm:"foreignKey:ReaderID;constraint:OnDelete:SET NULL;" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BeforeCreate assigns the random identifier and the default status.
func (bi *BookInstance) BeforeCreate(tx *gorm.DB) error {
	if bi.UniqueID == uuid.Nil {
		bi.UniqueID = uuid.New()
	}
	if bi.Status == "" {
		bi.Status = LoanStatusManaged
	}
	return nil
}

func (bi BookInstance) String() string {
	return fmt.Sprintf("%s: %s", bi.UniqueID, bi.Book.Title)
}

// IsOverdue reports whether the due date is strictly before the date of now.
// A due date equal to today is not overdue.
func (bi BookInstance) IsOverdue(now time.Time) bool {
	if bi.DueBack == nil {
		return false
	}
	return DateOf(*bi.DueBack).Before(DateOf(now))
}

// IsReservedBy reports whether userID is the instance's reader.
func (bi BookInstance) IsReservedBy(userID uint) bool {
	return userID != 0 && bi.ReaderID != nil && *bi.ReaderID == userID
}

type BookReview struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BookID    uint      `gorm:"index;not null" json:"book_id"`
	Book      Book      `gorm:"foreignKey:BookID" json:"-"`
	ReaderID  uint      `gorm:"index;not null" json:"reader_id"`
	Reader    User      `gorm:"foreignKey:ReaderID;constraint:OnDelete:CASCADE;" json:"reader"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index;<-:create" json:"created_at"`
}

// BeforeCreate stamps the review with today's date.
func (r *BookReview) BeforeCreate(tx *gorm.DB) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = DateOf(time.Now())
	}
	return nil
}

func (r BookReview) String() string {
	return fmt.Sprintf("%s on %s at %s", r.Reader.Username, r.Book.Title, r.CreatedAt.Format(DateLayout))
}

// DateLayout is the wire and form format of date-only fields.
const DateLayout = "2006-01-02"

// DateOf truncates t to midnight UTC of its calendar date in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a date-only string. The empty string yields nil.
func ParseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (Author) TableName() string {
	return "authors"
}

func (Genre) TableName() string {
	return "genres"
}

func (Book) TableName() string {
	return "books"
}

func (BookInstance) TableName() string {
	return "book_instances"
}

func (BookReview) TableName() string {
	return "book_reviews"
}
