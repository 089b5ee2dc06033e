package main

import "github.com/architeacher/natours/internal/runtime"

func main() {
	runtime.New().Run()
}
