// Command retrace-dump compiles a pattern and either disassembles it or
// emits the compiled program as Go source suitable for embedding.
//
//	retrace-dump '^[a-z]+@[a-z]+\.[a-z]{2,}$'
//	retrace-dump -gen -var EmailCode '^[a-z]+@[a-z]+\.[a-z]{2,}$' > email_code.go
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dave/jennifer/jen"

	"retrace"
)

func main() {
	gen := flag.Bool("gen", false, "emit the compiled program as Go source")
	varName := flag.String("var", "CompiledCode", "variable name for generated code")
	pkgName := flag.String("pkg", "main", "package name for generated code")
	rtl := flag.Bool("rtl", false, "compile right to left")
	ci := flag.Bool("i", false, "compile case-insensitive")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: retrace-dump [flags] <pattern>")
		flag.Usage()
		os.Exit(2)
	}
	pattern := flag.Arg(0)

	var opts retrace.Options
	if *rtl {
		opts |= retrace.RightToLeft
	}
	if *ci {
		opts |= retrace.IgnoreCase
	}

	re, err := retrace.Compile(pattern, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "retrace-dump: %v\n", err)
		os.Exit(1)
	}

	if !*gen {
		fmt.Printf("pattern: %q\n", pattern)
		fmt.Print(re.Dump())
		return
	}

	if err := generate(os.Stdout, re, pattern, *pkgName, *varName); err != nil {
		fmt.Fprintf(os.Stderr, "retrace-dump: %v\n", err)
		os.Exit(1)
	}
}

// generate renders the compiled program as a Go file declaring one *Code
// value, in the style of ahead-of-time regex compilers.
func generate(out *os.File, re *retrace.Regexp, pattern, pkgName, varName string) error {
	code := re.Code()

	f := jen.NewFile(pkgName)
	f.HeaderComment(fmt.Sprintf("Code generated by retrace-dump from %q. DO NOT EDIT.", pattern))

	codes := make([]jen.Code, len(code.Codes))
	for i, v := range code.Codes {
		codes[i] = jen.Lit(v)
	}

	strs := make([]jen.Code, len(code.Strings))
	for i, s := range code.Strings {
		strs[i] = jen.Index().Rune().Parens(jen.Lit(string(s)))
	}

	sets := make([]jen.Code, len(code.Sets))
	for i, cc := range code.Sets {
		ranges := make([]jen.Code, len(cc.Ranges))
		for j, rr := range cc.Ranges {
			ranges[j] = jen.Values(jen.Dict{
				jen.Id("Lo"): jen.LitRune(rr.Lo),
				jen.Id("Hi"): jen.LitRune(rr.Hi),
			})
		}
		sets[i] = jen.Values(jen.Dict{
			jen.Id("Ranges"):  jen.Index().Qual("retrace", "RuneRange").Values(ranges...),
			jen.Id("Negated"): jen.Lit(cc.Negated),
		})
	}

	dict := jen.Dict{
		jen.Id("Codes"):       jen.Index().Int().Values(codes...),
		jen.Id("Strings"):     jen.Index().Index().Rune().Values(strs...),
		jen.Id("Sets"):        jen.Index().Op("*").Qual("retrace", "CharClass").Values(sets...),
		jen.Id("TrackCount"):  jen.Lit(code.TrackCount),
		jen.Id("CapSize"):     jen.Lit(code.CapSize),
		jen.Id("RightToLeft"): jen.Lit(code.RightToLeft),
	}
	if code.Caps != nil {
		caps := jen.Dict{}
		for k, v := range code.Caps {
			caps[jen.Lit(k)] = jen.Lit(v)
		}
		dict[jen.Id("Caps")] = jen.Map(jen.Int()).Int().Values(caps)
	}

	f.Var().Id(varName).Op("=").Op("&").Qual("retrace", "Code").Values(dict)

	return f.Render(out)
}
