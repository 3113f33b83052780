package identity

import (
	"strconv"

	"bioattend/internal/domain"
)

// SeqSource is one existing user's contribution to sequence computation:
// the stored numeric sequence (if any) and the textual role code a legacy
// row may carry instead (e.g. "S001", "STU-00042").
type SeqSource struct {
	Seq  *int64
	Code *string
}

// NextSequence computes max(existing sequences, sequences inferred from
// legacy textual suffixes) + 1. Derived by scanning rather than a stored
// counter; callers must serialize invocations per role.
func NextSequence(rows []SeqSource) int64 {
	var max int64
	for _, r := range rows {
		if r.Seq != nil && *r.Seq > max {
			max = *r.Seq
		}
		if r.Code != nil {
			if n, ok := ParseLegacySeq(*r.Code); ok && n > max {
				max = n
			}
		}
	}
	return max + 1
}

// ParseLegacySeq extracts the trailing digit run of a legacy textual ID.
func ParseLegacySeq(code string) (int64, bool) {
	end := len(code)
	start := end
	for start > 0 && code[start-1] >= '0' && code[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.ParseInt(code[start:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// seqSourcesFor collects the sequence inputs for one role.
func seqSourcesFor(users []domain.User, role domain.Role) []SeqSource {
	var rows []SeqSource
	for i := range users {
		u := &users[i]
		if u.Role != role {
			continue
		}
		switch role {
		case domain.RoleStudent:
			rows = append(rows, SeqSource{Seq: u.StudentSeq, Code: u.StudentID})
		case domain.RoleLecturer:
			rows = append(rows, SeqSource{Seq: u.StaffSeq, Code: u.StaffID})
		}
	}
	return rows
}
