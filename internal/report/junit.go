package report

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/gotrs-io/boardcheck/internal/runner"
)

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Errors   int          `xml:"errors,attr"`
	Time     string       `xml:"time,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name      string      `xml:"name,attr"`
	ID        string      `xml:"id,attr"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Errors    int         `xml:"errors,attr"`
	Time      string      `xml:"time,attr"`
	Timestamp string      `xml:"timestamp,attr"`
	Cases     []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitProblem `xml:"failure,omitempty"`
	Error     *junitProblem `xml:"error,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type junitProblem struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// WriteJUnit writes one testsuite for the run with one testcase per scenario.
func WriteJUnit(path string, s *runner.Summary) error {
	suite := junitSuite{
		Name:      "boardcheck",
		ID:        s.RunID,
		Tests:     s.Total(),
		Failures:  s.Failed,
		Errors:    s.Errored,
		Time:      seconds(s.Duration),
		Timestamp: s.StartedAt.UTC().Format(time.RFC3339),
	}
	for _, r := range s.Results {
		tc := junitCase{
			Name:      r.Title,
			Classname: "boardcheck." + r.Scenario.App,
			Time:      seconds(r.Duration),
		}
		problem := &junitProblem{Message: r.Message, Type: string(r.Kind), Body: r.Message}
		switch r.Status {
		case runner.StatusPassed:
		case runner.StatusFailed:
			tc.Failure = problem
		default:
			tc.Error = problem
		}
		if r.Screenshot != "" {
			tc.SystemOut = "[[ATTACHMENT|" + r.Screenshot + "]]"
		}
		suite.Cases = append(suite.Cases, tc)
	}

	doc := junitSuites{
		Name:     "boardcheck",
		Tests:    suite.Tests,
		Failures: suite.Failures,
		Errors:   suite.Errors,
		Time:     suite.Time,
		Suites:   []junitSuite{suite},
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(xml.Header), append(out, '\n')...), 0o644)
}
