// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	projectFlag := &cli.StringFlag{
		Name:     "project",
		Aliases:  []string{"p"},
		Usage:    "Project the documents belong to",
		Required: true,
	}
	docsFlag := &cli.StringSliceFlag{
		Name:  "doc",
		Usage: "Restrict to this document id (repeatable)",
	}

	return &cli.App{
		Name:  "lectern",
		Usage: "Question answering, summaries and quizzes over your documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides the configuration)",
			},
			&cli.StringFlag{
				Name:  "index",
				Usage: "Vector index kind, qdrant or memory (overrides the configuration)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Upload documents and wait until they are processed",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					projectFlag,
					&cli.DurationFlag{
						Name:  "poll",
						Usage: "How often document status is checked",
						Value: 500 * time.Millisecond,
					},
				},
			},
			{
				Name:   "documents",
				Usage:  "List a project's documents and their status",
				Action: documentsCommand,
				Flags:  []cli.Flag{projectFlag},
			},
			{
				Name:   "delete",
				Usage:  "Delete a document and its vectors",
				Action: deleteCommand,
				Flags: []cli.Flag{
					projectFlag,
					&cli.StringFlag{Name: "id", Usage: "Document id", Required: true},
				},
			},
			{
				Name:      "ask",
				Usage:     "Ask a question about the project's documents",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: []cli.Flag{
					projectFlag,
					docsFlag,
					&cli.BoolFlag{Name: "stream", Aliases: []string{"s"}, Usage: "Print the answer as it is generated"},
				},
			},
			{
				Name:   "history",
				Usage:  "Show the project's conversation",
				Action: historyCommand,
				Flags: []cli.Flag{
					projectFlag,
					&cli.IntFlag{Name: "limit", Usage: "Show only the most recent messages (0 for all)", Value: 20},
				},
			},
			{
				Name:   "summary",
				Usage:  "Summarize the project's documents",
				Action: summaryCommand,
				Flags:  []cli.Flag{projectFlag, docsFlag},
			},
			{
				Name:   "topics",
				Usage:  "List the topics of the project's documents",
				Action: topicsCommand,
				Flags:  []cli.Flag{projectFlag},
			},
			{
				Name:  "quiz",
				Usage: "Generate and grade multiple-choice quizzes",
				Subcommands: []*cli.Command{
					{
						Name:   "generate",
						Usage:  "Generate a quiz",
						Action: quizGenerateCommand,
						Flags: []cli.Flag{
							projectFlag,
							docsFlag,
							&cli.StringFlag{Name: "topic", Usage: "Focus the quiz on a topic"},
							&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "Number of questions", Value: 5},
						},
					},
					{
						Name:      "submit",
						Usage:     "Grade answers given as NUMBER=LETTER, numbered from 1",
						ArgsUsage: "1=A 2=C ...",
						Action:    quizSubmitCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "id", Usage: "Quiz id", Required: true},
						},
					},
				},
			},
		},
	}
}
