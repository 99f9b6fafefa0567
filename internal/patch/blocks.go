package patch

import (
	"errors"
	"fmt"
	"strings"
)

const (
	markerSearch  = "<<<<<<< SEARCH"
	markerDivider = "======="
	markerReplace = ">>>>>>> REPLACE"
)

// ErrMalformedBlock is returned when a diff is not a sequence of complete
// SEARCH/REPLACE blocks.
var ErrMalformedBlock = errors.New("patch: malformed search/replace block")

// ParseBlocks reads a diff made of blocks like
//
//	<<<<<<< SEARCH
//	old text
//	=======
//	new text
//	>>>>>>> REPLACE
//
// Text outside blocks is ignored. An unterminated block fails the whole parse.
func ParseBlocks(diff string) ([]Block, error) {
	lines := strings.Split(strings.ReplaceAll(diff, "\r\n", "\n"), "\n")

	const (
		outside = iota
		inSearch
		inReplace
	)
	state := outside
	var blocks []Block
	var search, replace []string
	for i, line := range lines {
		marker := strings.TrimRight(line, " \t")
		switch state {
		case outside:
			if marker == markerSearch {
				state = inSearch
				search, replace = nil, nil
			}
		case inSearch:
			switch marker {
			case markerDivider:
				state = inReplace
			case markerSearch, markerReplace:
				return nil, fmt.Errorf("%w: unexpected %q at line %d", ErrMalformedBlock, marker, i+1)
			default:
				search = append(search, line)
			}
		case inReplace:
			switch marker {
			case markerReplace:
				if len(search) == 0 {
					return nil, fmt.Errorf("%w: empty search at line %d", ErrMalformedBlock, i+1)
				}
				blocks = append(blocks, Block{
					Search:  strings.Join(search, "\n"),
					Replace: strings.Join(replace, "\n"),
				})
				state = outside
			case markerSearch, markerDivider:
				return nil, fmt.Errorf("%w: unexpected %q at line %d", ErrMalformedBlock, marker, i+1)
			default:
				replace = append(replace, line)
			}
		}
	}
	if state != outside {
		return nil, fmt.Errorf("%w: unterminated block", ErrMalformedBlock)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no blocks found", ErrMalformedBlock)
	}
	return blocks, nil
}
