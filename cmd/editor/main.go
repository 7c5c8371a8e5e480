// editor 是简历编辑器的命令行前端：本地草稿 + 远端同步 + 版本快照。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: editor <command> [args]

account:
  signup -name N -email E -password P
  login -email E -password P
  logout

editing (local draft):
  show [-format plain-text|html-fragment] [-counts]
  set <section> <field> <value>              personalInfo, coverLetter, theme, skills
  set <section> <index> <field> <value>      list sections
  add <section> [field=value ...]            append a record to a list section
  add skills <category> <a,b,c>
  remove <section> <index>
  remove skills <category> <skill>
  tag add|remove <section> <index> <field> <tag>

sync:
  pull                                       replace the draft with the saved resume
  save                                       create or update the saved resume

versions:
  snapshot [name]
  versions
  restore <id>

export:
  export-html <path>
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	a, err := newApp(ctx, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "editor: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "editor: %v\n", err)
		os.Exit(1)
	}
}
