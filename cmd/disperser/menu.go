package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// flowState is the position of the interactive menu.
type flowState uint8

const (
	stateHome flowState = iota
	stateGenerate
	stateDisperse
	stateCollect
	stateBalances
	stateQuit
)

// String returns a human readable state name.
func (s flowState) String() string {
	switch s {
	case stateHome:
		return "home"
	case stateGenerate:
		return "generate"
	case stateDisperse:
		return "disperse"
	case stateCollect:
		return "collect"
	case stateBalances:
		return "balances"
	case stateQuit:
		return "quit"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// errQuit is returned by a prompt when input is exhausted.
var errQuit = errors.New("input closed")

// menu is the interactive front end. Every flow returns to home once it
// completes, whether or not it succeeded.
type menu struct {
	runner runner
	in     *bufio.Reader
	out    io.Writer
}

func newMenu(r runner, in io.Reader, out io.Writer) *menu {
	return &menu{
		runner: r,
		in:     bufio.NewReader(in),
		out:    out,
	}
}

// run drives the state machine until the user quits, input ends or ctx is
// done.
func (m *menu) run(ctx context.Context) {
	state := stateHome
	for state != stateQuit {
		if ctx.Err() != nil {
			return
		}

		next, err := m.step(ctx, state)
		switch {
		case errors.Is(err, errQuit):
			next = stateQuit

		case err != nil:
			log.Errorf("%v flow failed: %v", state, err)
			fmt.Fprintf(m.out, "Error: %v\n", err)
		}

		log.Debugf("Menu transition %v -> %v", state, next)
		state = next
	}
}

// step runs a single state and returns the next one.
func (m *menu) step(ctx context.Context, state flowState) (flowState, error) {
	switch state {
	case stateHome:
		return m.home()

	case stateGenerate:
		count, err := m.askInt("Number of wallets to create: ")
		if err != nil {
			return stateHome, err
		}
		return stateHome, m.runner.generate(count)

	case stateDisperse:
		choice, err := m.askStrategy()
		if err != nil {
			return stateHome, err
		}
		return stateHome, m.runner.disperse(ctx, choice)

	case stateCollect:
		return stateHome, m.runner.collect(ctx)

	case stateBalances:
		return stateHome, m.runner.balances(ctx)

	default:
		return stateQuit, nil
	}
}

// home shows the menu and reads the next state.
func (m *menu) home() (flowState, error) {
	fmt.Fprintln(m.out, renderMenu())

	option, err := m.askInt("Reply with command number: ")
	if err != nil {
		return stateHome, err
	}
	if option < 1 || option > len(menuEntries) {
		fmt.Fprintln(m.out, "Provided option invalid, choose from the "+
			"menu numbers available")
		return stateHome, nil
	}

	return menuEntries[option-1].state, nil
}

// askStrategy prompts for an amount strategy and its parameters.
func (m *menu) askStrategy() (*strategyChoice, error) {
	option, err := m.askInt("Amount source (1: amount file, 2: uniform, " +
		"3: random range): ")
	if err != nil {
		return nil, err
	}

	switch option {
	case 1:
		return &strategyChoice{Name: strategyFile}, nil

	case 2:
		amt, err := m.ask("Amount of SOL per wallet: ")
		if err != nil {
			return nil, err
		}
		return &strategyChoice{Name: strategyUniform, Amount: amt}, nil

	case 3:
		min, err := m.ask("Minimum SOL per wallet: ")
		if err != nil {
			return nil, err
		}
		max, err := m.ask("Maximum SOL per wallet: ")
		if err != nil {
			return nil, err
		}
		return &strategyChoice{
			Name: strategyRandom,
			Min:  min,
			Max:  max,
		}, nil

	default:
		return nil, fmt.Errorf("unknown amount source %d", option)
	}
}

// ask prints question and returns the trimmed answer.
func (m *menu) ask(question string) (string, error) {
	fmt.Fprint(m.out, question)

	// A final line without a newline is still an answer.
	line, err := m.in.ReadString('\n')
	switch {
	case errors.Is(err, io.EOF) && line == "":
		return "", errQuit

	case err != nil && !errors.Is(err, io.EOF):
		return "", err
	}

	return strings.TrimSpace(line), nil
}

func (m *menu) askInt(question string) (int, error) {
	answer, err := m.ask(question)
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(answer)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", answer)
	}

	return n, nil
}
