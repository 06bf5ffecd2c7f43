package domain

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// ParseID parses a snowflake ID from its decimal string form.
func ParseID(raw string) (snowflake.ID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	return snowflake.ID(v), nil
}
