package env

import (
	"os"
	"strconv"
)

func Debug() bool {
	return os.Getenv("DEBUG") != ""
}

// Timeout returns ERD_TIMEOUT in seconds.
func Timeout() (int, bool) {
	if s := os.Getenv("ERD_TIMEOUT"); s != "" {
		i, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return int(i), true
		}
	}
	return -1, false
}

// PostgresTests reports whether tests against a real Postgres container should run.
func PostgresTests() bool {
	return os.Getenv("ERD_TEST_POSTGRES") == "1"
}
