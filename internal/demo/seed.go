package demo

import (
	"context"
	"fmt"
	"log"

	"github.com/mrlokans/librarian/internal/entities"
)

// CatalogWriter creates catalog rows for the demo data set.
type CatalogWriter interface {
	GetOrCreateGenre(ctx context.Context, name string) (*entities.Genre, error)
	CreateAuthor(ctx context.Context, author *entities.Author) error
	CreateBook(ctx context.Context, book *entities.Book, genreIDs []uint) error
}

// InstanceWriter creates book copies.
type InstanceWriter interface {
	CreateInstance(ctx context.Context, instance *entities.BookInstance) error
}

// SeedBook is a public domain book of the demo catalog.
type SeedBook struct {
	Title  string
	ISBN   string
	Genres []string
	// Copies on the shelf, all available
	Copies  int
	Summary string
}

// SeedAuthor groups the demo books by author.
type SeedAuthor struct {
	FirstName string
	LastName  string
	Books     []SeedBook
}

// SeedResult counts what Seed created.
type SeedResult struct {
	Authors   int
	Books     int
	Instances int
}

// Seed fills the catalog with public domain books and available copies.
// Genres are looked up by name, so running it against a catalog that already
// has them does not duplicate them.
func Seed(ctx context.Context, catalog CatalogWriter, instances InstanceWriter, authors []SeedAuthor) (SeedResult, error) {
	var result SeedResult
	genreIDs := make(map[string]uint)

	for _, sa := range authors {
		author := &entities.Author{FirstName: sa.FirstName, LastName: sa.LastName}
		if err := catalog.CreateAuthor(ctx, author); err != nil {
			return result, fmt.Errorf("create author %s: %w", author.String(), err)
		}
		result.Authors++

		for _, sb := range sa.Books {
			ids := make([]uint, 0, len(sb.Genres))
			for _, name := range sb.Genres {
				id, ok := genreIDs[name]
				if !ok {
					genre, err := catalog.GetOrCreateGenre(ctx, name)
					if err != nil {
						return result, fmt.Errorf("create genre %s: %w", name, err)
					}
					id = genre.ID
					genreIDs[name] = id
				}
				ids = append(ids, id)
			}

			book := &entities.Book{
				Title:    sb.Title,
				Summary:  sb.Summary,
				AuthorID: &author.ID,
			}
			if sb.ISBN != "" {
				isbn := sb.ISBN
				book.ISBN = &isbn
			}
			if err := catalog.CreateBook(ctx, book, ids); err != nil {
				return result, fmt.Errorf("create book %s: %w", sb.Title, err)
			}
			result.Books++

			for i := 0; i < sb.Copies; i++ {
				instance := &entities.BookInstance{BookID: book.ID, Status: entities.LoanStatusAvailable}
				if err := instances.CreateInstance(ctx, instance); err != nil {
					return result, fmt.Errorf("create copy of %s: %w", sb.Title, err)
				}
				result.Instances++
			}
			log.Printf("Seeded: %s by %s (%d copies)", sb.Title, author.String(), sb.Copies)
		}
	}
	return result, nil
}

// PublicDomainCatalog is the default demo data set.
func PublicDomainCatalog() []SeedAuthor {
	return []SeedAuthor{
		{
			FirstName: "Leo",
			LastName:  "Tolstoy",
			Books: []SeedBook{
				{
					Title:   "War and Peace",
					ISBN:    "9780199232765",
					Genres:  []string{"Novel", "Historical fiction"},
					Copies:  3,
					Summary: "Five aristocratic families live through the Napoleonic invasion of Russia.",
				},
				{
					Title:   "Anna Karenina",
					ISBN:    "9780143035008",
					Genres:  []string{"Novel"},
					Copies:  2,
					Summary: "A married aristocrat's affair with Count Vronsky set against rural life on Levin's estate.",
				},
			},
		},
		{
			FirstName: "Marcus",
			LastName:  "Aurelius",
			Books: []SeedBook{
				{
					Title:   "Meditations",
					Genres:  []string{"Philosophy"},
					Copies:  2,
					Summary: "Private notes of a Roman emperor on Stoic discipline and duty.",
				},
			},
		},
		{
			FirstName: "Jane",
			LastName:  "Austen",
			Books: []SeedBook{
				{
					Title:   "Pride and Prejudice",
					ISBN:    "9780141439518",
					Genres:  []string{"Novel", "Romance"},
					Copies:  2,
					Summary: "Elizabeth Bennet and Mr Darcy misjudge each other across the ballrooms of Hertfordshire.",
				},
			},
		},
		{
			FirstName: "Kristijonas",
			LastName:  "Donelaitis",
			Books: []SeedBook{
				{
					Title:   "The Seasons",
					Genres:  []string{"Poetry"},
					Copies:  1,
					Summary: "A poem following a Lithuanian village through the four seasons of the year.",
				},
			},
		},
		{
			FirstName: "Charles",
			LastName:  "Darwin",
			Books: []SeedBook{
				{
					Title:   "On the Origin of Species",
					ISBN:    "9780451529060",
					Genres:  []string{"Science"},
					Copies:  1,
					Summary: "The argument for evolution by natural selection, built from barnacles, pigeons and finches.",
				},
			},
		},
	}
}
