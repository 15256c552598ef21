package schedjobs

import "time"

type OneTimeJob struct {
	ID         string
	ExecTime   time.Time
	Task       Task
	OnAdded    func()
	OnFinished func(error)
}
