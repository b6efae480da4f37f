package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gnemet/SlideGraph/internal/pptx"
	"github.com/spf13/afero"
)

// Prints the element outline of one package member, e.g.
//
//	go run ./scripts/dump_part deck.pptx ppt/slides/slide1.xml
func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: go run ./scripts/dump_part <pptx_path> <member>")
	}

	pkg, err := pptx.Open(afero.NewOsFs(), os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	defer pkg.Close()

	root, err := pkg.ReadMember(os.Args[2])
	if err != nil {
		log.Fatal(err)
	}

	type item struct {
		n     *pptx.Node
		depth int
	}
	stack := []item{{root, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		fmt.Printf("%s<%s", strings.Repeat("  ", it.depth), it.n.Name.Local)
		for _, a := range it.n.Attrs {
			if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
				continue
			}
			fmt.Printf(" %s=%q", a.Name.Local, a.Value)
		}
		fmt.Printf(">")
		if t := strings.TrimSpace(it.n.Text); t != "" && len(it.n.Children) == 0 {
			fmt.Printf(" %q", t)
		}
		fmt.Println()

		for i := len(it.n.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{it.n.Children[i], it.depth + 1})
		}
	}
}
