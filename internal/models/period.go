package models

import "time"

// Period is one of the lifecycle phases an election moves through.
type Period string

const (
	PeriodPrenomination Period = "prenomination"
	PeriodNominations   Period = "nominations"
	PeriodInterim       Period = "interim"
	PeriodVoting        Period = "voting"
	PeriodPostvoting    Period = "postvoting"
	PeriodFinished      Period = "finished"
)

func (p Period) String() string {
	return string(p)
}

// CurrentPeriod classifies now into one of the six election periods.
// A manual termination (EndedAt set) wins over everything; after that
// the first matching window wins. Window starts are inclusive, ends
// exclusive.
func (e *Election) CurrentPeriod(now time.Time) Period {
	switch {
	case e.EndedAt != nil:
		return PeriodFinished
	case !now.Before(e.NominationsStart) && now.Before(e.NominationsEnd):
		return PeriodNominations
	case !now.Before(e.VotingStart) && now.Before(e.VotingEnd):
		return PeriodVoting
	case !now.Before(e.NominationsEnd) && now.Before(e.VotingStart):
		return PeriodInterim
	case now.Before(e.NominationsStart):
		return PeriodPrenomination
	default:
		return PeriodPostvoting
	}
}
