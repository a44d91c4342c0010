package scanner

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/mod/modfile"

	"github.com/xkilldash9x/synthmind/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type manifestParser struct {
	file     string
	language string
	parse    func(path string, g *schemas.GithubSignals) error
}

// manifestParsers are tried in order; the first manifest found wins.
var manifestParsers = []manifestParser{
	{file: "package.json", language: "javascript", parse: parsePackageJSON},
	{file: "go.mod", language: "go", parse: parseGoMod},
	{file: "requirements.txt", language: "python", parse: parseRequirements},
}

// match is one dependency-name rule. Rules are checked in order.
type match struct {
	dep   string
	label string
}

var (
	nodeFrameworks = []match{
		{"express", "Express"}, {"next", "Next.js"}, {"@nestjs/core", "NestJS"},
		{"fastify", "Fastify"}, {"koa", "Koa"},
	}
	nodeDatabases = []match{
		{"mongoose", "MongoDB"}, {"mongodb", "MongoDB"}, {"pg", "Postgres"},
		{"mysql2", "MySQL"}, {"mysql", "MySQL"}, {"redis", "Redis"}, {"ioredis", "Redis"},
	}
	goFrameworks = []match{
		{"github.com/gin-gonic/gin", "Gin"}, {"github.com/labstack/echo", "Echo"},
		{"github.com/gofiber/fiber", "Fiber"}, {"github.com/go-chi/chi", "Chi"},
		{"github.com/gorilla/mux", "Gorilla Mux"},
	}
	goDatabases = []match{
		{"github.com/jackc/pgx", "Postgres"}, {"github.com/lib/pq", "Postgres"},
		{"github.com/go-sql-driver/mysql", "MySQL"}, {"go.mongodb.org/mongo-driver", "MongoDB"},
		{"github.com/redis/go-redis", "Redis"}, {"github.com/go-redis/redis", "Redis"},
	}
	pythonFrameworks = []match{
		{"django", "Django"}, {"flask", "Flask"}, {"fastapi", "FastAPI"},
	}
	pythonDatabases = []match{
		{"psycopg2", "Postgres"}, {"psycopg2-binary", "Postgres"}, {"asyncpg", "Postgres"},
		{"pymongo", "MongoDB"}, {"mysqlclient", "MySQL"}, {"pymysql", "MySQL"}, {"redis", "Redis"},
	}
	pythonEntrypoints = []string{"manage.py", "main.py", "app.py", "wsgi.py", "asgi.py"}
)

// firstMatch returns the label of the first rule whose dep satisfies has.
func firstMatch(rules []match, has func(dep string) bool, fallback string) string {
	for _, r := range rules {
		if has(r.dep) {
			return r.label
		}
	}
	return fallback
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Scripts         map[string]string `json:"scripts"`
}

func parsePackageJSON(path string, g *schemas.GithubSignals) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return malformed(err)
	}

	deps := make(map[string]struct{}, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for name := range pkg.Dependencies {
		deps[name] = struct{}{}
	}
	for name := range pkg.DevDependencies {
		deps[name] = struct{}{}
	}
	has := func(dep string) bool { _, ok := deps[dep]; return ok }

	g.DependencyCount = len(deps)
	g.HasStartScript = pkg.Scripts["start"] != "" || pkg.Scripts["dev"] != ""
	g.Framework = firstMatch(nodeFrameworks, has, schemas.UnknownValue)
	g.Database = firstMatch(nodeDatabases, has, schemas.NoneValue)
	return nil
}

func parseGoMod(path string, g *schemas.GithubSignals) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f, err := modfile.Parse(path, data, nil)
	if err != nil {
		return malformed(err)
	}

	paths := make([]string, 0, len(f.Require))
	for _, r := range f.Require {
		paths = append(paths, r.Mod.Path)
	}
	// Module paths carry major-version suffixes, so match on prefix.
	has := func(dep string) bool {
		for _, p := range paths {
			if p == dep || strings.HasPrefix(p, dep+"/") {
				return true
			}
		}
		return false
	}

	dir := filepath.Dir(path)
	g.DependencyCount = len(paths)
	g.HasStartScript = exists(filepath.Join(dir, "main.go")) || isDir(filepath.Join(dir, "cmd"))
	g.Framework = firstMatch(goFrameworks, has, schemas.UnknownValue)
	g.Database = firstMatch(goDatabases, has, schemas.NoneValue)
	return nil
}

func parseRequirements(path string, g *schemas.GithubSignals) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	deps := map[string]struct{}{}
	lines := bufio.NewScanner(bytes.NewReader(data))
	for lines.Scan() {
		line := strings.TrimSpace(lines.Text())
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		if i := strings.IndexAny(line, "=<>~!;[ "); i >= 0 {
			line = line[:i]
		}
		deps[strings.ToLower(line)] = struct{}{}
	}
	if err := lines.Err(); err != nil {
		return malformed(err)
	}
	has := func(dep string) bool { _, ok := deps[dep]; return ok }

	dir := filepath.Dir(path)
	g.DependencyCount = len(deps)
	for _, entry := range pythonEntrypoints {
		if exists(filepath.Join(dir, entry)) {
			g.HasStartScript = true
			break
		}
	}
	g.Framework = firstMatch(pythonFrameworks, has, schemas.UnknownValue)
	g.Database = firstMatch(pythonDatabases, has, schemas.NoneValue)
	return nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", schemas.ErrMalformedArtifact, err)
}

func errMissingField(field string) error {
	return fmt.Errorf("missing required field %q", field)
}

func malformedIssue(artifact string, err error) string {
	return fmt.Sprintf(issueMalformedPattern, artifact, err)
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
