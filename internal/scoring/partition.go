// Package scoring turns DASS-21 item responses into subscale scores: it sums
// items into subscale totals, rescales totals to the 42-item convention and
// reshapes wide records into the long analysis table.
package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/models"
)

// Partition assigns each subscale its seven question IDs ("Q1".."Q21").
// A valid Partition covers every question exactly once.
type Partition map[models.Subscale][]string

// DefaultPartition returns the standard DASS-21 item assignment.
func DefaultPartition() Partition {
	return Partition{
		models.SubscaleAnxiety:    {"Q2", "Q4", "Q7", "Q9", "Q15", "Q19", "Q20"},
		models.SubscaleDepression: {"Q3", "Q5", "Q10", "Q13", "Q16", "Q17", "Q21"},
		models.SubscaleStress:     {"Q1", "Q6", "Q8", "Q11", "Q12", "Q14", "Q18"},
	}
}

// QuestionID formats the column label for a 1-based question number.
func QuestionID(q int) string {
	return "Q" + strconv.Itoa(q)
}

// parseQuestionID returns the 1-based question number for a label like "Q7".
func parseQuestionID(id string) (int, bool) {
	if !strings.HasPrefix(id, "Q") {
		return 0, false
	}
	n, err := strconv.Atoi(id[1:])
	if err != nil || n < 1 || n > constants.NumQuestions || QuestionID(n) != id {
		return 0, false
	}
	return n, true
}

// itemIndex holds the 0-based item positions of each subscale.
type itemIndex [constants.NumSubscales][constants.ItemsPerSubscale]int

// Validate checks that p is an exact partition of the 21 questions into the
// three subscales, seven items each. It returns a *models.PartitionError.
func (p Partition) Validate() error {
	_, err := p.compile()
	return err
}

func (p Partition) compile() (itemIndex, error) {
	var idx itemIndex

	for s := range p {
		if !s.Valid() {
			return idx, &models.PartitionError{Reason: fmt.Sprintf("unknown subscale %s", s.Name())}
		}
	}

	owner := make(map[int]models.Subscale, constants.NumQuestions)
	for _, s := range models.AllSubscales() {
		items, ok := p[s]
		if !ok {
			return idx, &models.PartitionError{Reason: fmt.Sprintf("subscale %s has no items", s)}
		}
		if len(items) != constants.ItemsPerSubscale {
			return idx, &models.PartitionError{
				Reason: fmt.Sprintf("subscale %s has %d items, want %d", s, len(items), constants.ItemsPerSubscale),
			}
		}
		for i, id := range items {
			q, ok := parseQuestionID(id)
			if !ok {
				return idx, &models.PartitionError{Question: id, Reason: "not a DASS-21 question"}
			}
			if prev, dup := owner[q]; dup {
				return idx, &models.PartitionError{
					Question: id,
					Reason:   fmt.Sprintf("mapped to both %s and %s", prev, s),
				}
			}
			owner[q] = s
			idx[s][i] = q - 1
		}
	}

	for q := 1; q <= constants.NumQuestions; q++ {
		if _, ok := owner[q]; !ok {
			return idx, &models.PartitionError{Question: QuestionID(q), Reason: "not mapped to any subscale"}
		}
	}
	return idx, nil
}

// totals sums the items of each subscale.
func (idx itemIndex) totals(items [constants.NumQuestions]int) [constants.NumSubscales]int {
	var out [constants.NumSubscales]int
	for s, positions := range idx {
		for _, pos := range positions {
			out[s] += items[pos]
		}
	}
	return out
}

// Totals sums one row of items into the three subscale totals.
func Totals(items [constants.NumQuestions]int, p Partition) ([constants.NumSubscales]int, error) {
	idx, err := p.compile()
	if err != nil {
		return [constants.NumSubscales]int{}, err
	}
	return idx.totals(items), nil
}
