package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/violation"
	"github.com/trezcool/masomo-admin/storage/schoolapi"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	api    *schoolapi.Client
	repo   *violation.Repository
	mailer core.EmailService
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME|EMAIL - authenticate and print an API token")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL -name NAME [-roles ROLE,...] - register a staff member")
	fmt.Fprintln(cli.out, "  violations [-degree N] [-status STATUS] [-search TEXT] - list violations")
	fmt.Fprintln(cli.out, "  toggle -violation ID -step N [-task TASK] - toggle a procedure step or task")
	fmt.Fprintln(cli.out, "  notes -violation ID -step N -text TEXT - save a procedure step's notes")
	fmt.Fprintln(cli.out, "  print -violation ID -step N -task TASK [-out DIR] - compose a referral document")
	fmt.Fprintln(cli.out, "  automate -violation ID -step N -task TASK - run a task's automation")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginUname := loginCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The staff member's username.")
	addUserEmail := addUserCmd.String("email", "", "The staff member's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The staff member's full name.")
	addUserRoles := addUserCmd.String("roles", "", "Comma separated roles (admin, principal, counselor, supervisor, teacher).")

	listCmd := flag.NewFlagSet("violations", flag.ContinueOnError)
	listDegree := listCmd.Int("degree", 0, "Only list violations of this degree (1-4).")
	listStatus := listCmd.String("status", "", "Only list violations with this status.")
	listSearch := listCmd.String("search", "", "Search student names and violation types.")

	toggleCmd := flag.NewFlagSet("toggle", flag.ContinueOnError)
	toggleID := toggleCmd.String("violation", "", "The violation ID.")
	toggleStep := toggleCmd.Int("step", 0, "The procedure step.")
	toggleTask := toggleCmd.String("task", "", "The task ID; the whole step is toggled when empty.")

	notesCmd := flag.NewFlagSet("notes", flag.ContinueOnError)
	notesID := notesCmd.String("violation", "", "The violation ID.")
	notesStep := notesCmd.Int("step", 0, "The procedure step.")
	notesText := notesCmd.String("text", "", "The notes.")

	printCmd := flag.NewFlagSet("print", flag.ContinueOnError)
	printID := printCmd.String("violation", "", "The violation ID.")
	printStep := printCmd.Int("step", 0, "The procedure step.")
	printTask := printCmd.String("task", "", "The task ID.")
	printDir := printCmd.String("out", "", "Save the document in this directory instead of printing it.")

	automateCmd := flag.NewFlagSet("automate", flag.ContinueOnError)
	automateID := automateCmd.String("violation", "", "The violation ID.")
	automateStep := automateCmd.Int("step", 0, "The procedure step.")
	automateTask := automateCmd.String("task", "", "The task ID.")

	for _, fs := range []*flag.FlagSet{loginCmd, addUserCmd, listCmd, toggleCmd, notesCmd, printCmd, automateCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(*loginUname, pwd)

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserUname == "" || *addUserEmail == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserUname, *addUserEmail, pwd, splitList(*addUserRoles))

	case "violations":
		if err := listCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.listViolations(&violation.QueryFilter{
			Degree: violation.Degree(*listDegree),
			Status: violation.Status(*listStatus),
			Search: *listSearch,
		})

	case "toggle":
		if err := toggleCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *toggleID == "" || *toggleStep <= 0 {
			toggleCmd.Usage()
			return errHelp
		}
		return cli.toggle(*toggleID, *toggleStep, *toggleTask)

	case "notes":
		if err := notesCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *notesID == "" || *notesStep <= 0 {
			notesCmd.Usage()
			return errHelp
		}
		return cli.saveNotes(*notesID, *notesStep, *notesText)

	case "print":
		if err := printCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *printID == "" || *printStep <= 0 || *printTask == "" {
			printCmd.Usage()
			return errHelp
		}
		return cli.printReferral(*printID, *printStep, *printTask, *printDir)

	case "automate":
		if err := automateCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *automateID == "" || *automateStep <= 0 || *automateTask == "" {
			automateCmd.Usage()
			return errHelp
		}
		return cli.automate(*automateID, *automateStep, *automateTask)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = core.CleanString(item, true /* lower */); item != "" {
			items = append(items, item)
		}
	}
	return items
}
