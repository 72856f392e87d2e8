package calculator

import (
	"errors"
)

// ErrNoParticipants is returned when a cost has nobody to split it.
var ErrNoParticipants = errors.New("must have at least one participant")

// EqualShare computes each participant's share of an amount split equally.
// Based on the rule: share = amount / participant_count
func EqualShare(amount float64, participants int) (float64, error) {
	if participants <= 0 {
		return 0, ErrNoParticipants
	}
	return amount / float64(participants), nil
}
