package main

import "github.com/goplus/uibuild/cmd/uibuild/internal"

func main() {
	internal.Execute()
}
