//go:build !darwin

package main

func OSSpecificInit() {
}
