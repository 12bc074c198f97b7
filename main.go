// ./main.go
package main

import (
	"github.com/xkilldash9x/litmus/cmd"
)

func main() {
	cmd.Execute()
}
