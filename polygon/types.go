package polygon

// SourceProblem is a read-only snapshot of a problem as the authoring
// service currently sees it. It is re-fetched on every migration run
// and never mutated locally.
type SourceProblem struct {
	PolygonID     string
	Title         string
	TimeLimitMs   int
	MemoryLimitKb int
	Checker       string
	Statement     Statement
	TestCount     int
}

// Statement holds the problem text split into its sections. The
// serialization of the section HTML is the caller's concern; the
// fetcher stores the text verbatim.
type Statement struct {
	Language     string
	Story        string
	InputFormat  string
	OutputFormat string
	Notes        string
}

// JudgeTestCase is one (input, expected output) pair used for grading.
// Index is 1-based and matches the authoring service's numbering.
type JudgeTestCase struct {
	Index  int    `json:"index"`
	Input  []byte `json:"input"`
	Answer []byte `json:"answer"`
}

// SampleTest is a test shown in the problem statement, destined for the
// relational store rather than blob storage.
type SampleTest struct {
	Ord    int
	Input  string
	Output string
}

// problemInfo mirrors the problem.info result payload.
type problemInfo struct {
	InputFile   string `json:"inputFile"`
	OutputFile  string `json:"outputFile"`
	Interactive bool   `json:"interactive"`
	TimeLimit   int    `json:"timeLimit"`   // milliseconds
	MemoryLimit int    `json:"memoryLimit"` // megabytes
}

// statementPayload mirrors one entry of the problem.statements result,
// keyed by language.
type statementPayload struct {
	Encoding string `json:"encoding"`
	Name     string `json:"name"`
	Legend   string `json:"legend"`
	Input    string `json:"input"`
	Output   string `json:"output"`
	Scoring  string `json:"scoring"`
	Notes    string `json:"notes"`
}

// testMeta mirrors one entry of the problem.tests result.
type testMeta struct {
	Index           int    `json:"index"`
	Manual          bool   `json:"manual"`
	Input           string `json:"input,omitempty"`
	Description     string `json:"description,omitempty"`
	UseInStatements bool   `json:"useInStatements"`
}

// FileMeta mirrors one entry of the problem.files result.
type FileMeta struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Length int64  `json:"length"`
}
