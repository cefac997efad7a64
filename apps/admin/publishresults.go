package main

import (
	"context"
	"fmt"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/result"
)

// publishResults publishes all pending results matching the given scope,
// stamping the approving admin on each.
func (cli *commandLine) publishResults(semester, year int, program, approver string) error {
	ctx := context.Background()

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, core.CleanString(approver, true /* lower */))
	if err != nil {
		return err
	}
	if !usr.IsAdmin() {
		return fmt.Errorf("user %q is not an admin", usr.Username)
	}

	count, err := cli.resSvc.Publish(ctx, result.PublishFilter{
		Semester: semester,
		ExamYear: year,
		Program:  core.CleanString(program),
	}, usr.ID)
	if err != nil {
		return err
	}

	logger.Printf("published %d result(s)\n", count)
	return nil
}
