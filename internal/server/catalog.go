package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/SmitUplenchwar2687/editplay/internal/remote"
)

// ErrBadCredentials is returned by Catalog.Authenticate.
var ErrBadCredentials = errors.New("invalid username or password")

// Catalog is the stub webapp's static data: users, courses, problems and
// which user is registered in which course.
type Catalog struct {
	Users         []CatalogUser   `yaml:"users"`
	Courses       []CatalogCourse `yaml:"courses"`
	Registrations []Registration  `yaml:"registrations"`

	usersByName map[string]*CatalogUser
	problems    map[int64]*CatalogProblem
	courses     map[int64]*CatalogCourse
	registered  map[int64]map[int64]bool // user -> course set
}

// CatalogUser is a login. Password is plain text in the file and replaced
// by a bcrypt hash at load; PasswordHash may be given directly instead.
type CatalogUser struct {
	ID           int64  `yaml:"id"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password,omitempty"`
	PasswordHash string `yaml:"password_hash,omitempty"`
}

type CatalogCourse struct {
	ID       int64            `yaml:"id"`
	Name     string           `yaml:"name"`
	Title    string           `yaml:"title,omitempty"`
	Term     string           `yaml:"term,omitempty"`
	Problems []CatalogProblem `yaml:"problems"`
}

type CatalogProblem struct {
	ID         int64         `yaml:"id"`
	Name       string        `yaml:"name"`
	Brief      string        `yaml:"brief,omitempty"`
	QuizEndsAt *time.Time    `yaml:"quiz_ends_at,omitempty"`
	Tests      []CatalogTest `yaml:"tests,omitempty"`

	courseID int64
}

// CatalogTest passes when the submitted text contains Expect.
type CatalogTest struct {
	Name   string `yaml:"name"`
	Expect string `yaml:"expect"`
}

type Registration struct {
	Username string  `yaml:"username"`
	Courses  []int64 `yaml:"courses"`
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	cat, err := ParseCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalog decodes a YAML catalog, hashes plain-text passwords and
// builds the lookup indexes.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var cat Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if err := cat.Index(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Index hashes plain-text passwords, checks references between users,
// courses and registrations, and rebuilds the lookup indexes. Catalogs
// built in code must be indexed before use; New does so when needed.
func (c *Catalog) Index() error {
	c.usersByName = make(map[string]*CatalogUser, len(c.Users))
	for i := range c.Users {
		u := &c.Users[i]
		if u.Username == "" {
			return fmt.Errorf("user %d has no username", u.ID)
		}
		if _, dup := c.usersByName[u.Username]; dup {
			return fmt.Errorf("duplicate user %q", u.Username)
		}
		if u.PasswordHash == "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hashing password for %q: %w", u.Username, err)
			}
			u.PasswordHash = string(hash)
		}
		u.Password = ""
		c.usersByName[u.Username] = u
	}

	c.courses = make(map[int64]*CatalogCourse, len(c.Courses))
	c.problems = make(map[int64]*CatalogProblem)
	for i := range c.Courses {
		course := &c.Courses[i]
		if _, dup := c.courses[course.ID]; dup {
			return fmt.Errorf("duplicate course id %d", course.ID)
		}
		c.courses[course.ID] = course
		for j := range course.Problems {
			p := &course.Problems[j]
			if _, dup := c.problems[p.ID]; dup {
				return fmt.Errorf("duplicate problem id %d", p.ID)
			}
			p.courseID = course.ID
			c.problems[p.ID] = p
		}
	}

	c.registered = make(map[int64]map[int64]bool)
	for _, reg := range c.Registrations {
		u, ok := c.usersByName[reg.Username]
		if !ok {
			return fmt.Errorf("registration for unknown user %q", reg.Username)
		}
		set := c.registered[u.ID]
		if set == nil {
			set = make(map[int64]bool)
			c.registered[u.ID] = set
		}
		for _, id := range reg.Courses {
			if _, ok := c.courses[id]; !ok {
				return fmt.Errorf("registration of %q in unknown course %d", reg.Username, id)
			}
			set[id] = true
		}
	}
	return nil
}

func (c *Catalog) indexed() bool {
	return c.usersByName != nil
}

// Authenticate checks a username and password.
func (c *Catalog) Authenticate(username, password string) (remote.Identity, error) {
	u, ok := c.usersByName[username]
	if !ok {
		return remote.Identity{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return remote.Identity{}, ErrBadCredentials
	}
	return remote.Identity{ID: u.ID, Username: u.Username}, nil
}

// CoursesFor returns the courses userID is registered in, in catalog order.
func (c *Catalog) CoursesFor(userID int64) []remote.Course {
	courses := []remote.Course{}
	for _, course := range c.Courses {
		if c.registered[userID][course.ID] {
			courses = append(courses, remote.Course{
				ID: course.ID, Name: course.Name, Title: course.Title, Term: course.Term,
			})
		}
	}
	return courses
}

// IsRegistered reports whether userID may see courseID.
func (c *Catalog) IsRegistered(userID, courseID int64) bool {
	return c.registered[userID][courseID]
}

// ProblemsFor lists a course's problems ordered by id.
func (c *Catalog) ProblemsFor(courseID int64) ([]remote.Problem, bool) {
	course, ok := c.courses[courseID]
	if !ok {
		return nil, false
	}
	problems := make([]remote.Problem, 0, len(course.Problems))
	for i := range course.Problems {
		problems = append(problems, course.Problems[i].toRemote())
	}
	sort.SliceStable(problems, func(i, j int) bool { return problems[i].ID < problems[j].ID })
	return problems, true
}

// Problem looks a problem up by id.
func (c *Catalog) Problem(id int64) (*CatalogProblem, bool) {
	p, ok := c.problems[id]
	return p, ok
}

// CourseID returns the id of the course p belongs to.
func (p *CatalogProblem) CourseID() int64 { return p.courseID }

// QuizEnded reports whether submissions for p are closed at now.
func (p *CatalogProblem) QuizEnded(now time.Time) bool {
	return p.QuizEndsAt != nil && !now.Before(*p.QuizEndsAt)
}

func (p *CatalogProblem) toRemote() remote.Problem {
	return remote.Problem{
		ID:         p.ID,
		CourseID:   p.courseID,
		Name:       p.Name,
		Brief:      p.Brief,
		QuizEndsAt: p.QuizEndsAt,
	}
}
