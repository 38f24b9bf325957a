package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"arkoi/internal/driver"
)

func main() {
	emit := flag.String("emit", "asm", "output to produce: asm, il, or cfg")
	optLevel := flag.Int("O", 0, "optimization level: 0 or 1")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: arkoic [-emit=asm|il|cfg] [-O=0|1] <file.ark>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read %s: %s", path, err)
		os.Exit(1)
	}

	level := driver.O0
	if *optLevel >= 1 {
		level = driver.O1
	}

	res, diags, err := driver.Compile(driver.Options{Filename: path, Source: string(source), Opt: level})
	if err != nil {
		color.Red("compiler bug: %s", err)
		os.Exit(2)
	}
	if diags != nil && len(diags.All()) > 0 {
		fmt.Print(diags.Render())
		if diags.HasErrors() {
			os.Exit(1)
		}
	}

	switch strings.ToLower(*emit) {
	case "il":
		fmt.Println(res.IL)
	case "cfg":
		fmt.Println(res.CFG)
	default:
		fmt.Println(res.Asm)
	}

	color.Green("compiled %s", path)
}
