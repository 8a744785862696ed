package config

import (
	"fmt"
	"regexp"

	"github.com/joho/godotenv"
)

var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// variables builds the lookup used for substitution: env.vars, overridden
// by env.file entries, falling back to fallback.
func variables(env envSection, fallback LookupFunc) (LookupFunc, error) {
	vars := make(map[string]string, len(env.Vars))
	for k, v := range env.Vars {
		vars[k] = v
	}

	if env.File != "" {
		fileVars, err := godotenv.Read(env.File)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrEnvFile, env.File, err)
		}

		for k, v := range fileVars {
			vars[k] = v
		}
	}

	return func(name string) (string, bool) {
		if v, ok := vars[name]; ok {
			return v, true
		}

		if fallback == nil {
			return "", false
		}

		return fallback(name)
	}, nil
}

// substitute replaces every ${NAME} in s. The first undefined name is an
// error.
func substitute(s string, lookup LookupFunc) (string, error) {
	var missing string

	out := variablePattern.ReplaceAllStringFunc(s, func(match string) string {
		name := variablePattern.FindStringSubmatch(match)[1]

		v, ok := lookup(name)
		if !ok && missing == "" {
			missing = name
		}

		return v
	})

	if missing != "" {
		return "", fmt.Errorf("%w: ${%s}", ErrUndefinedVariable, missing)
	}

	return out, nil
}

func substituteAll(doc *document, lookup LookupFunc) error {
	fields := []*string{
		&doc.Migration.MigrationPath,
		&doc.Migration.StatementTimeout,
		&doc.Migration.LockTimeout,
		&doc.Connection.Database,
		&doc.Connection.Postgres.ConnectionString,
		&doc.Connection.Turso.URL,
		&doc.Connection.Turso.Token,
	}

	for _, f := range fields {
		v, err := substitute(*f, lookup)
		if err != nil {
			return err
		}

		*f = v
	}

	return nil
}
