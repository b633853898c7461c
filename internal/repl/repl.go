// Package repl asks the operator for the answers a run needs, in a fixed
// order, and validates them as they come in.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/IshaanNene/entitymap/internal/engine"
	"github.com/IshaanNene/entitymap/internal/types"
)

const (
	promptSite  = "Please choose the type of website:\n1. Collection\n2. Encyclopedia\nEnter the number corresponding to your choice: "
	promptCrawl = "Do you want to crawl the whole website? yes/no: "
	promptURL   = "Enter the URL: "
	promptPath  = "Enter specific path: "
	promptStart = "Enter the starting phrase: "
	promptEnd   = "Enter the ending phrase: "
)

// REPL reads answers from in and writes prompts to out.
type REPL struct {
	reader *bufio.Reader
	out    io.Writer
}

// New creates a REPL over the given streams.
func New(in io.Reader, out io.Writer) *REPL {
	return &REPL{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Ask runs the prompts: site type, crawl yes/no, URL, path filter (only
// when crawling), start phrase and end phrase. onSite, if set, runs right
// after a valid site type is read. Bad input is a *types.InvalidInputError.
func (r *REPL) Ask(onSite func(types.SiteType) error) (engine.Job, error) {
	var job engine.Job

	answer, err := r.ask(promptSite, "site type")
	if err != nil {
		return job, err
	}
	site, err := types.ParseSiteType(answer)
	if err != nil {
		return job, err
	}
	job.Site = site
	if onSite != nil {
		if err := onSite(site); err != nil {
			return job, err
		}
	}

	answer, err = r.ask(promptCrawl, "crawl")
	if err != nil {
		return job, err
	}
	switch strings.ToLower(answer) {
	case "yes":
		job.Crawl = true
	case "no":
	default:
		return job, &types.InvalidInputError{Prompt: "crawl", Input: answer, Reason: "answer yes or no"}
	}

	if job.URL, err = r.ask(promptURL, "url"); err != nil {
		return job, err
	}
	if job.URL == "" {
		return job, &types.InvalidInputError{Prompt: "url", Input: job.URL, Reason: "a URL is required"}
	}

	if job.Crawl {
		if job.PathFilter, err = r.ask(promptPath, "path filter"); err != nil {
			return job, err
		}
	}

	if job.StartPhrase, err = r.ask(promptStart, "start phrase"); err != nil {
		return job, err
	}
	if job.EndPhrase, err = r.ask(promptEnd, "end phrase"); err != nil {
		return job, err
	}
	return job, nil
}

// ask prints prompt and returns the trimmed line. Input that ends before a
// line is entered is an InvalidInputError.
func (r *REPL) ask(prompt, name string) (string, error) {
	fmt.Fprint(r.out, prompt)
	line, err := r.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", &types.InvalidInputError{Prompt: name, Reason: "no input"}
		}
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return strings.TrimSpace(line), nil
}
