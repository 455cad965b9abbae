package processor

// Outcome says what happened to one file.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeSkipped
	OutcomeWritten
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeWritten:
		return "written"
	default:
		return "failed"
	}
}

type Job struct {
	Path    string
	Display string
}

type Result struct {
	Path     string
	Display  string
	Outcome  Outcome
	Output   string
	Width    int
	Height   int
	Deleted  bool
	ExifTags int
	Err      error
}

type Summary struct {
	Total   int
	Written int
	Skipped int
	Deleted int
	Errors  int
}

func (s *Summary) add(res Result) {
	s.Total++
	switch res.Outcome {
	case OutcomeWritten:
		s.Written++
	case OutcomeSkipped:
		s.Skipped++
	default:
		s.Errors++
	}
	if res.Deleted {
		s.Deleted++
	}
}
