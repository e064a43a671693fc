package generate

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/SmitUplenchwar2687/editplay/internal/server"
)

// CatalogOptions controls Catalog.
type CatalogOptions struct {
	Users     int
	Password  string
	Course    string
	Exercises []string
}

// DefaultCatalogOptions returns the defaults used by the CLI.
func DefaultCatalogOptions() CatalogOptions {
	return CatalogOptions{
		Users:     3,
		Password:  "muffin",
		Course:    "CS101",
		Exercises: []string{"helloWorld", DefaultExercise},
	}
}

// Catalog builds an indexed stub webapp catalog: users user1..userN, all
// registered in one course holding one problem per exercise. The
// DefaultSource exercise gets tests DefaultSource passes.
func Catalog(opts CatalogOptions) (*server.Catalog, error) {
	cat, err := buildCatalog(opts)
	if err != nil {
		return nil, err
	}
	if err := cat.Index(); err != nil {
		return nil, err
	}
	return cat, nil
}

// buildCatalog fills in the catalog with plain-text passwords, as it is
// written to YAML.
func buildCatalog(opts CatalogOptions) (*server.Catalog, error) {
	if opts.Users <= 0 {
		return nil, fmt.Errorf("users must be positive, got %d", opts.Users)
	}
	if len(opts.Exercises) == 0 {
		return nil, fmt.Errorf("at least one exercise is required")
	}
	if opts.Course == "" {
		opts.Course = "CS101"
	}

	cat := &server.Catalog{}
	course := server.CatalogCourse{ID: 1, Name: opts.Course, Title: "Generated course"}
	for i, name := range opts.Exercises {
		p := server.CatalogProblem{ID: int64(10 * (i + 1)), Name: name}
		if name == DefaultExercise {
			p.Tests = []server.CatalogTest{
				{Name: "adds all three", Expect: "a + b + c"},
				{Name: "prints result", Expect: "printf"},
			}
		}
		course.Problems = append(course.Problems, p)
	}
	cat.Courses = []server.CatalogCourse{course}

	for i := 1; i <= opts.Users; i++ {
		name := fmt.Sprintf("user%d", i)
		cat.Users = append(cat.Users, server.CatalogUser{ID: int64(i), Username: name, Password: opts.Password})
		cat.Registrations = append(cat.Registrations, server.Registration{Username: name, Courses: []int64{course.ID}})
	}
	return cat, nil
}

// CatalogYAML renders the catalog as a YAML document. Passwords stay in
// plain text; ParseCatalog hashes them at load.
func CatalogYAML(opts CatalogOptions) ([]byte, error) {
	cat, err := buildCatalog(opts)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(cat)
}
