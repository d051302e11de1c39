// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package immediate_test

import (
	"context"
	"fmt"

	"github.com/joeycumines/go-immediate"
	"github.com/joeycumines/go-immediate/eventloop"
)

func Example() {
	loop, err := eventloop.New()
	if err != nil {
		panic(err)
	}
	go func() { _ = loop.Run(context.Background()) }()
	defer func() { _ = loop.Shutdown(context.Background()) }()

	g := eventloop.NewServerGlobal(loop)
	if _, err := immediate.Install(g); err != nil {
		panic(err)
	}

	done := make(chan struct{})
	if _, err := g.Immediate.SetImmediate(func(args ...any) error {
		fmt.Println(`hello`, args[0])
		close(done)
		return nil
	}, `world`); err != nil {
		panic(err)
	}
	<-done

	//output:
	//hello world
}

func ExampleScheduler_ClearImmediate() {
	loop, err := eventloop.New()
	if err != nil {
		panic(err)
	}
	go func() { _ = loop.Run(context.Background()) }()
	defer func() { _ = loop.Shutdown(context.Background()) }()

	s, err := immediate.New(eventloop.NewGlobal(loop))
	if err != nil {
		panic(err)
	}

	done := make(chan struct{})
	_ = loop.Submit(func() {
		cancelled, _ := s.SetImmediate(func(...any) error {
			fmt.Println(`never printed`)
			return nil
		})
		_, _ = s.SetImmediate(func(...any) error {
			fmt.Println(`second`)
			close(done)
			return nil
		})
		s.ClearImmediate(cancelled)
	})
	<-done

	fmt.Println(s.Kind(), s.Stats().Cancelled)

	//output:
	//second
	//setTimeout 1
}

func ExampleSelect() {
	loop, err := eventloop.New()
	if err != nil {
		panic(err)
	}
	defer loop.Close()

	window, err := eventloop.NewWindow(loop)
	if err != nil {
		panic(err)
	}
	document, err := eventloop.NewDocument(loop)
	if err != nil {
		panic(err)
	}
	legacy := eventloop.NewGlobal(loop)
	legacy.Document = document

	fmt.Println(immediate.Select(eventloop.NewServerGlobal(loop)))
	fmt.Println(immediate.Select(eventloop.NewBrowserGlobal(loop, window, document)))
	fmt.Println(immediate.Select(eventloop.NewWorkerGlobal(loop, eventloop.NewWorkerScope(loop, window, nil))))
	fmt.Println(immediate.Select(legacy))
	fmt.Println(immediate.Select(eventloop.NewGlobal(loop)))

	//output:
	//nextTick
	//postMessage
	//messageChannel
	//readyStateChange
	//setTimeout
}
