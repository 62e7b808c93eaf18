// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export_test

import (
	"fmt"

	"github.com/jeranaias/parley/internal/export"
)

func ExampleForFormat() {
	for _, name := range export.Formats() {
		e, err := export.ForFormat(name, nil)
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println(name, e.FileExtension(), e.MimeType())
	}
	// Output:
	// markdown .md text/markdown
	// json .json application/json
	// html .html text/html
}
