package submission

// The five fixed workflow tasks every submission gets, whether it was
// created by hand or by the autonomy pipeline. Positions are 0-based.
// Tasks at position 2+ start locked and unlock as dependencies complete.
const (
	TaskChecklist = 0
	TaskUpload    = 1
	TaskLegal     = 2
	TaskFinance   = 3
	TaskFinal     = 4
)

// taskDeps maps a task position to the positions that must all be
// completed before it unlocks. Positions 0 and 1 are never locked.
var taskDeps = map[int][]int{
	TaskLegal:   {TaskChecklist, TaskUpload},
	TaskFinance: {TaskLegal},
	TaskFinal:   {TaskLegal, TaskFinance},
}

// TaskSeed describes one default task row for a new submission.
type TaskSeed struct {
	Position int
	Title    string
	Subtitle string
	Locked   bool
}

func DefaultTasks() []TaskSeed {
	return []TaskSeed{
		{Position: TaskChecklist, Title: "Complete Checklist", Subtitle: "Review and complete all required fields"},
		{Position: TaskUpload, Title: "Upload Documents", Subtitle: "Attach all required documents"},
		{Position: TaskLegal, Title: "Legal Review", Subtitle: "Obtain legal department approval", Locked: true},
		{Position: TaskFinance, Title: "Finance Review", Subtitle: "Obtain finance department approval", Locked: true},
		{Position: TaskFinal, Title: "Final Review", Subtitle: "Complete final review before submission", Locked: true},
	}
}

// StepSeed describes one default approval step for a new submission.
type StepSeed struct {
	StepName     string
	StepOrder    int
	ApproverRole string
}

func DefaultApprovalSteps() []StepSeed {
	return []StepSeed{
		{StepName: "legal", StepOrder: 1, ApproverRole: "contract_officer"},
		{StepName: "finance", StepOrder: 2, ApproverRole: "contract_officer"},
	}
}
