package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kbukum/repokit/repository"
	"github.com/kbukum/repokit/version"
)

type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, json: format == "json"}
}

type repoView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Owner       string  `json:"owner,omitempty"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
}

func viewOf(r repository.Repository) repoView {
	v := repoView{ID: r.ID, Name: r.Name, Owner: r.Owner, Description: r.Description}
	if r.URL != nil {
		v.URL = r.URL.String()
	}
	return v
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) repos(repos []repository.Repository) error {
	if p.json {
		views := make([]repoView, 0, len(repos))
		for _, r := range repos {
			views = append(views, viewOf(r))
		}
		return p.encode(views)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, r := range repos {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.ID, r.Name, r.DescriptionOrEmpty())
	}
	return tw.Flush()
}

func (p *printer) repo(r repository.Repository) error {
	if p.json {
		return p.encode(viewOf(r))
	}
	_, err := fmt.Fprintf(p.w, "created %s (id %d)\n", r.Name, r.ID)
	return err
}

func (p *printer) deleted(repos []repository.Repository) error {
	names := make([]string, 0, len(repos))
	for _, r := range repos {
		names = append(names, r.Name)
	}
	if p.json {
		return p.encode(map[string]any{"deleted": names})
	}
	if len(names) == 0 {
		_, err := fmt.Fprintln(p.w, "nothing to delete")
		return err
	}
	for _, n := range names {
		if _, err := fmt.Fprintf(p.w, "deleted %s\n", n); err != nil {
			return err
		}
	}
	return nil
}

func (p *printer) whoami(login, baseURL, credential string) error {
	if p.json {
		return p.encode(map[string]string{"login": login, "base_url": baseURL, "credential": credential})
	}
	_, err := fmt.Fprintf(p.w, "%s @ %s (%s)\n", login, baseURL, credential)
	return err
}

func (p *printer) ping(endpoints int) error {
	if p.json {
		return p.encode(map[string]any{"ok": true, "endpoints": endpoints})
	}
	_, err := fmt.Fprintln(p.w, "ok")
	return err
}

func (p *printer) version(info version.Info) error {
	if p.json {
		return p.encode(info)
	}
	_, err := fmt.Fprintln(p.w, info.String())
	return err
}
