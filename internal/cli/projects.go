// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// projects.go - project knowledge bases.
//
// Command: projects
// Aliases: project
//
// Subcommands:
//
//	list                                   (default)
//	create --name NAME --goal GOAL [--instructions TEXT]
//	show ID
//	upload ID FILE... [-n NAME ...]
//	instructions ID "text"
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/util"
)

func (a *App) runProjects(ctx context.Context, args Args) error {
	p := NewArgParser(args.Rest)
	switch strings.ToLower(p.Subcommand()) {
	case "", "list", "ls":
		return a.projectsList(ctx, args)
	case "create", "new":
		return a.projectsCreate(ctx, args, p)
	case "show", "get":
		return a.projectsShow(ctx, args, p)
	case "upload", "add":
		return a.projectsUpload(ctx, args, p)
	case "instructions":
		return a.projectsInstructions(ctx, args, p)
	default:
		return fmt.Errorf("%w: projects %s", ErrUnknownCommand, p.Subcommand())
	}
}

func (a *App) projectsList(ctx context.Context, args Args) error {
	pm, err := a.projectManager(ctx)
	if err != nil {
		return err
	}
	list, err := pm.List(ctx)
	if err != nil {
		return err
	}
	if list == nil {
		list = []model.Project{}
	}
	return a.emit(args, list, func(w io.Writer) error {
		if len(list) == 0 {
			fmt.Fprintln(w, DimStyle.Render("No projects. Create one with: parley projects create --name NAME --goal GOAL"))
			return nil
		}
		for _, proj := range list {
			fmt.Fprintf(w, "%s  %s  %s\n",
				util.PadWidth(proj.ID, 12),
				util.PadWidth(util.TruncateWidth(proj.Name, 30), 30),
				DimStyle.Render(util.TruncateWidth(util.SingleLine(proj.Goal), 50)))
		}
		return nil
	})
}

func (a *App) projectsCreate(ctx context.Context, args Args, p *ArgParser) error {
	name := p.Flag("name")
	if name == "" {
		name = p.JoinFrom(1)
	}
	pm, err := a.projectManager(ctx)
	if err != nil {
		return err
	}
	proj, err := pm.Create(ctx, name, p.Flag("goal"), p.Flag("instructions"))
	if err != nil {
		return err
	}
	return a.emit(args, proj, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s project %s (%s)\n", SuccessStyle.Render("Created"), proj.Name, proj.ID)
		return err
	})
}

func (a *App) projectsShow(ctx context.Context, args Args, p *ArgParser) error {
	id := p.Positional(1)
	if id == "" {
		return ErrMissingArgument("project id", "parley projects show ID")
	}
	pm, err := a.projectManager(ctx)
	if err != nil {
		return err
	}
	d, err := pm.Details(ctx, id)
	if err != nil {
		return err
	}
	data := ProjectData{
		Project:       d.Project,
		Documents:     d.Documents,
		Conversations: d.Conversations,
		Latest:        d.Latest,
	}
	return a.emit(args, data, func(w io.Writer) error {
		fmt.Fprintln(w, TitleStyle.Render(d.Project.Name))
		fmt.Fprintln(w, RenderLabel("id")+ValueStyle.Render(d.Project.ID))
		fmt.Fprintln(w, RenderLabel("goal")+ValueStyle.Render(util.SingleLine(d.Project.Goal)))
		if d.Project.Instructions != "" {
			fmt.Fprintln(w, RenderLabel("instructions")+ValueStyle.Render(util.SingleLine(d.Project.Instructions)))
		}
		fmt.Fprintln(w, RenderSeparator())
		fmt.Fprintln(w, RenderLabel("documents")+ValueStyle.Render(fmt.Sprint(len(d.Documents))))
		for _, doc := range d.Documents {
			fmt.Fprintf(w, "  - %s %s\n", doc.Name, DimStyle.Render(fmt.Sprintf("(%.2f MB)", doc.SizeMB)))
		}
		fmt.Fprintln(w, RenderLabel("conversations")+ValueStyle.Render(fmt.Sprint(len(d.Conversations))))
		for _, c := range d.Conversations {
			fmt.Fprintf(w, "  - %s %s\n", util.TruncateWidth(c.Title, 50), DimStyle.Render(c.ID))
		}
		return nil
	})
}

func (a *App) projectsUpload(ctx context.Context, args Args, p *ArgParser) error {
	id, paths := p.Positional(1), p.PositionalFrom(2)
	if id == "" || len(paths) == 0 {
		return ErrMissingArgument("project id and files", "parley projects upload ID report.pdf [-n NAME]")
	}
	pm, err := a.projectManager(ctx)
	if err != nil {
		return err
	}
	docs, err := pm.UploadDocuments(ctx, id, paths, p.Flags("name"))
	for _, d := range docs {
		a.notice(args, "%s %s", SuccessStyle.Render("Uploaded"), d.Name)
	}
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []model.Document{}
	}
	if args.JSON {
		return NewJSONResponse(args.Name, docs).Write(a.out)
	}
	return nil
}

func (a *App) projectsInstructions(ctx context.Context, args Args, p *ArgParser) error {
	id, text := p.Positional(1), p.JoinFrom(2)
	if id == "" {
		return ErrMissingArgument("project id", `parley projects instructions ID "text"`)
	}
	pm, err := a.projectManager(ctx)
	if err != nil {
		return err
	}
	if err := pm.UpdateInstructions(ctx, id, text); err != nil {
		return err
	}
	a.notice(args, "%s instructions for %s", SuccessStyle.Render("Updated"), id)
	return nil
}
